package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Conversion.SkipRows != 5 {
		t.Errorf("SkipRows = %d, want 5", cfg.Conversion.SkipRows)
	}
	if cfg.Conversion.Offset() != DefaultOffsetDays {
		t.Errorf("Offset = %d, want %d", cfg.Conversion.Offset(), DefaultOffsetDays)
	}
	if len(cfg.Conversion.ColumnMap) != 11 {
		t.Errorf("ColumnMap has %d entries, want 11", len(cfg.Conversion.ColumnMap))
	}
	if cfg.Conversion.SubtractSalesOrderOffset() {
		t.Errorf("SO offset direction should default to add")
	}
}

func TestConversionApplyDefaults(t *testing.T) {
	var conv Conversion
	conv.ApplyDefaults()
	if conv.SkipRows != 5 || conv.Offset() != DefaultOffsetDays || len(conv.ColumnMap) != 11 {
		t.Fatalf("core defaults not applied: %+v", conv)
	}
	if conv.SalesOrder.USCustomerName != "PORT DROP OFF - US" || conv.SalesOrder.SalesRepID != "HOUSE" {
		t.Errorf("sales order defaults not applied: %+v", conv.SalesOrder)
	}

	kept := Conversion{SkipRows: 2, SalesOrder: SalesOrderSettings{SalesRepID: "ANNA"}}
	kept.ApplyDefaults()
	if kept.SkipRows != 2 || kept.SalesOrder.SalesRepID != "ANNA" {
		t.Errorf("explicit values overwritten: %+v", kept)
	}
}

func TestParseKeepsExplicitZeroOffset(t *testing.T) {
	cfg, err := Parse([]byte("conversion:\n  offset_days: 0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Conversion.Offset() != 0 {
		t.Fatalf("Offset = %d, want 0", cfg.Conversion.Offset())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
input_dir: ./in
max_concurrency: 2
conversion:
  skip_rows: 3
  offset_days: 45
  reference:
    delimiter: ";"
    encoding: cp1252
  sales_order:
    us_offset_direction: subtract
    sales_rep_id: REP7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputDir != "./in" || cfg.MaxConcurrency != 2 {
		t.Errorf("unexpected dirs/concurrency: %+v", cfg)
	}
	if cfg.OutputDir != "./output" {
		t.Errorf("OutputDir default not applied: %q", cfg.OutputDir)
	}
	conv := cfg.Conversion
	if conv.SkipRows != 3 || conv.Offset() != 45 {
		t.Errorf("skip/offset = %d/%d", conv.SkipRows, conv.Offset())
	}
	if conv.Reference.Delimiter != ";" || NormalizeEncoding(conv.Reference.Encoding) != "WINDOWS-1252" {
		t.Errorf("reference settings = %+v", conv.Reference)
	}
	if !conv.SubtractSalesOrderOffset() || conv.SalesOrder.SalesRepID != "REP7" {
		t.Errorf("sales order settings = %+v", conv.SalesOrder)
	}
	if conv.SalesOrder.USCustomerName == "" {
		t.Errorf("USCustomerName default not applied")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative offset", "conversion:\n  offset_days: -1\n", "offset_days"},
		{"bad direction", "conversion:\n  sales_order:\n    us_offset_direction: sideways\n", "us_offset_direction"},
		{"bad encoding", "conversion:\n  reference:\n    encoding: EBCDIC\n", "encoding"},
		{"duplicate source", "conversion:\n  column_map:\n    - {source: A, target: \"**VendorName\"}\n    - {source: A, target: Memo}\n", "duplicate"},
		{"unknown target", "conversion:\n  column_map:\n    - {source: A, target: Notes}\n", "unknown target"},
		{"missing target", "conversion:\n  column_map:\n    - {source: A, target: Memo}\n", "no source for target"},
		{"empty target", "conversion:\n  column_map:\n    - {source: A}\n", "required"},
		{"bad yaml", "conversion: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestServiceConfigValidate(t *testing.T) {
	c := &ServiceConfig{StoreBackend: "local", MaxUploadMB: 10}
	if err := c.Validate(); err != nil {
		t.Fatalf("local: %v", err)
	}
	c.StoreBackend = "s3"
	if err := c.Validate(); err == nil {
		t.Fatalf("s3 without bucket should fail")
	}
	c.S3Bucket, c.S3AccessKey, c.S3SecretKey = "b", "k", "s"
	if err := c.Validate(); err != nil {
		t.Fatalf("s3 complete: %v", err)
	}
	c.StoreBackend = "ftp"
	if err := c.Validate(); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}

func TestLoadServiceFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("API_SECRET_KEY", "s3cret")
	t.Setenv("DOWNLOAD_RETENTION_HOURS", "2")
	t.Setenv("STORE_BACKEND", "local")

	c, err := LoadService()
	if err != nil {
		t.Fatalf("LoadService: %v", err)
	}
	if c.HTTPPort != "8088" || c.APISecretKey != "s3cret" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.DownloadRetention().Hours() != 2 {
		t.Errorf("retention = %v", c.DownloadRetention())
	}
	if c.FetchTimeout().Seconds() != 30 {
		t.Errorf("fetch timeout default = %v", c.FetchTimeout())
	}
}

func TestExampleConfigParses(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Conversion.ColumnMap) != len(DefaultColumnMap()) {
		t.Errorf("column map has %d entries", len(cfg.Conversion.ColumnMap))
	}
	if cfg.Conversion.Offset() != DefaultOffsetDays || cfg.Conversion.SkipRows != 5 {
		t.Errorf("unexpected conversion settings: %+v", cfg.Conversion)
	}
}

func TestColumnMapSourceOverride(t *testing.T) {
	var b strings.Builder
	b.WriteString("conversion:\n  column_map:\n")
	for _, m := range DefaultColumnMap() {
		src := m.Source
		if src == "PO No." {
			src = "Purchase Order"
		}
		b.WriteString("    - {source: \"" + src + "\", target: \"" + m.Target + "\"}\n")
	}
	cfg, err := Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Conversion.ColumnMap[0].Source != "Purchase Order" {
		t.Errorf("override lost: %+v", cfg.Conversion.ColumnMap[0])
	}
}
