// =============================================================================
// GPS to ERP Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the converter's
// configuration. It handles two sources:
//
// CONFIGURATION SOURCES:
//   1. Main Config (config.yaml): directories, batch settings and the
//      conversion rules (column map, offsets, reference CSV settings)
//   2. Service Config (environment / .env): settings of the HTTP service,
//      see service.go
//
// The main config file is optional. When it is absent every setting takes its
// default, so `gpsconv convert a.xlsx b.csv` works from any directory.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the global application configuration.
// This is loaded from the main config.yaml file.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS (batch processing)
	// =========================================================================

	// InputDir is scanned for GPS reports (*.xlsx) by the process command.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives converted CSV files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives GPS reports after a successful conversion.
	// Default: "./input_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// LogDir receives error logs and run summaries.
	// Default: "./logs"
	LogDir string `yaml:"log_dir"`

	// =========================================================================
	// LOGGING AND BATCH SETTINGS
	// =========================================================================

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// MaxConcurrency bounds how many reports the process command converts at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a batch running after a report fails.
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// =========================================================================
	// CONVERSION RULES
	// =========================================================================

	// Conversion holds everything the core pipeline needs.
	Conversion Conversion `yaml:"conversion"`
}

// Conversion contains the rules of the GPS report to ERP CSV pipeline.
type Conversion struct {
	// SkipRows is the number of metadata rows above the GPS report header.
	// Default: 5
	SkipRows int `yaml:"skip_rows"`

	// OffsetDays is shifted onto US-market delivery and ship dates.
	// Default: 60. A pointer so that an explicit 0 in YAML is kept.
	OffsetDays *int `yaml:"offset_days"`

	// ColumnMap renames GPS report headers to ERP field names, in order.
	// Default: DefaultColumnMap()
	ColumnMap []ColumnMapping `yaml:"column_map"`

	// Reference describes how the ERP reference CSV is parsed.
	Reference CSVSettings `yaml:"reference"`

	// SalesOrder holds settings only the SO layout uses.
	SalesOrder SalesOrderSettings `yaml:"sales_order"`
}

// ColumnMapping renames one GPS report header.
type ColumnMapping struct {
	// Source is the header as it appears in the GPS report.
	Source string `yaml:"source"`

	// Target is the ERP field name. Equal to Source for pass-through columns.
	Target string `yaml:"target"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator. "," (default), ";", "tab" or "|".
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows merged into column names.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// Encoding of the file. UTF-8 (default), UTF-16, windows-1252 or ISO-8859-1.
	Encoding string `yaml:"encoding"`
}

// SalesOrderSettings contains the literals of the SO layout.
type SalesOrderSettings struct {
	// USCustomerName is the customer used for rows whose market is UNITED STATES.
	// Default: "PORT DROP OFF - US"
	USCustomerName string `yaml:"us_customer_name"`

	// SalesRepID is written into every SO row.
	// Default: "HOUSE"
	SalesRepID string `yaml:"sales_rep_id"`

	// USOffsetDirection is "add" (default) or "subtract".
	USOffsetDirection string `yaml:"us_offset_direction"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultOffsetDays is the US-market date shift used when none is configured.
const DefaultOffsetDays = 60

// DefaultColumnMap returns the GPS report header renames in application order.
func DefaultColumnMap() []ColumnMapping {
	return []ColumnMapping{
		{Source: "PO No.", Target: "**ThirdPartyRefNo"},
		{Source: "Vendor Short Name", Target: "**VendorName"},
		{Source: "PO Release Date", Target: "**DateOrder"},
		{Source: "Orig Req XFD", Target: "VendorReqDate"},
		{Source: "Curr CFM XFD", Target: "**DateExpectedDelivery"},
		{Source: "Exp or Act XFD", Target: "ExpectedShipDate"},
		{Source: "Reason Remark", Target: "Memo"},
		{Source: "FOB Price", Target: "**UnitPrice"},
		{Source: "Quantity", Target: "**QtyOrder"},
		{Source: "PO Reference No.", Target: "PO Reference No."},
		{Source: "Customer Order No.", Target: "Customer Order No."},
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultConversion returns the conversion rules with every default applied.
func DefaultConversion() Conversion {
	return Default().Conversion
}

// Offset returns the configured offset days.
func (c Conversion) Offset() int {
	if c.OffsetDays == nil {
		return DefaultOffsetDays
	}
	return *c.OffsetDays
}

// SubtractSalesOrderOffset reports whether SO dates move backwards for US rows.
func (c Conversion) SubtractSalesOrderOffset() bool {
	return strings.EqualFold(c.SalesOrder.USOffsetDirection, "subtract")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied. A missing file is
//     not an error; the defaults are returned.
//   - An error if the file exists but cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "./input_archive"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "./logs"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 4
	}

	cfg.Conversion.ApplyDefaults()
}

// ApplyDefaults sets default values for any unset conversion rule. The
// converter calls it too, so a zero Conversion behaves like the defaults.
func (c *Conversion) ApplyDefaults() {
	if c.SkipRows == 0 {
		c.SkipRows = 5
	}
	if c.OffsetDays == nil {
		def := DefaultOffsetDays
		c.OffsetDays = &def
	}
	if len(c.ColumnMap) == 0 {
		c.ColumnMap = DefaultColumnMap()
	}
	if c.Reference.Delimiter == "" {
		c.Reference.Delimiter = ","
	}
	if c.Reference.HeaderRows == 0 {
		c.Reference.HeaderRows = 1
	}
	if c.Reference.Encoding == "" {
		c.Reference.Encoding = "UTF-8"
	}
	if c.SalesOrder.USCustomerName == "" {
		c.SalesOrder.USCustomerName = "PORT DROP OFF - US"
	}
	if c.SalesOrder.SalesRepID == "" {
		c.SalesOrder.SalesRepID = "HOUSE"
	}
	if c.SalesOrder.USOffsetDirection == "" {
		c.SalesOrder.USOffsetDirection = "add"
	}
}

// validate checks the settings that defaults cannot repair.
func validate(cfg *Config) error {
	if cfg.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", cfg.MaxConcurrency)
	}
	if cfg.Conversion.SkipRows < 0 {
		return fmt.Errorf("conversion.skip_rows must not be negative, got %d", cfg.Conversion.SkipRows)
	}
	if cfg.Conversion.Offset() < 0 {
		return fmt.Errorf("conversion.offset_days must not be negative, got %d", cfg.Conversion.Offset())
	}

	canonical := make(map[string]bool)
	for _, m := range DefaultColumnMap() {
		canonical[m.Target] = true
	}
	seen := make(map[string]bool, len(cfg.Conversion.ColumnMap))
	mapped := make(map[string]bool, len(cfg.Conversion.ColumnMap))
	for i, m := range cfg.Conversion.ColumnMap {
		if strings.TrimSpace(m.Source) == "" || strings.TrimSpace(m.Target) == "" {
			return fmt.Errorf("conversion.column_map[%d]: source and target are required", i)
		}
		if seen[m.Source] {
			return fmt.Errorf("conversion.column_map: duplicate source %q", m.Source)
		}
		if !canonical[m.Target] {
			return fmt.Errorf("conversion.column_map[%d]: unknown target %q", i, m.Target)
		}
		if mapped[m.Target] {
			return fmt.Errorf("conversion.column_map: target %q mapped twice", m.Target)
		}
		seen[m.Source] = true
		mapped[m.Target] = true
	}
	for target := range canonical {
		if !mapped[target] {
			return fmt.Errorf("conversion.column_map: no source for target %q", target)
		}
	}

	switch strings.ToLower(cfg.Conversion.SalesOrder.USOffsetDirection) {
	case "add", "subtract":
	default:
		return fmt.Errorf("conversion.sales_order.us_offset_direction must be add or subtract, got %q",
			cfg.Conversion.SalesOrder.USOffsetDirection)
	}

	if !SupportedEncoding(cfg.Conversion.Reference.Encoding) {
		return fmt.Errorf("conversion.reference.encoding %q is not supported", cfg.Conversion.Reference.Encoding)
	}
	return nil
}

// SupportedEncoding reports whether the CSV reader can decode the named encoding.
func SupportedEncoding(name string) bool {
	switch NormalizeEncoding(name) {
	case "UTF-8", "UTF-16", "WINDOWS-1252", "ISO-8859-1":
		return true
	}
	return false
}

// NormalizeEncoding maps encoding aliases onto one canonical name.
func NormalizeEncoding(name string) string {
	n := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, "_", "-")))
	switch n {
	case "", "UTF8", "UTF-8":
		return "UTF-8"
	case "UTF16", "UTF-16":
		return "UTF-16"
	case "CP1252", "WINDOWS-1252", "WIN-1252":
		return "WINDOWS-1252"
	case "LATIN1", "LATIN-1", "ISO-8859-1", "ISO8859-1":
		return "ISO-8859-1"
	}
	return n
}
