// =============================================================================
// GPS to ERP Converter - Convert Command
// =============================================================================
//
// COMMAND USAGE:
//   gpsconv convert INPUT.xlsx ERP.csv [flags]
//
// FLAGS:
//   --type        : po (default) or so
//   --output      : Output path; default is INPUT_PO.csv / INPUT_SO.csv next
//                   to the report
//   --offset-days : Days US-market dates move; default from config (60)
//   --dry-run     : Convert and report, but write nothing
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/converter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	convertType       string
	convertOutput     string
	convertOffsetDays int
	convertDryRun     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT.xlsx ERP.csv",
	Short: "Convert one GPS report into a PO or SO import CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset := appConfig.Conversion.Offset()
		if cmd.Flags().Changed("offset-days") {
			offset = convertOffsetDays
		}
		return runConvert(args[0], args[1], offset)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertType, "type", "po", "Document to produce: po or so")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output CSV path (default: next to the report)")
	convertCmd.Flags().IntVar(&convertOffsetDays, "offset-days", 0, "Days US-market dates move (default from config)")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "Convert without writing the output file")
}

// =============================================================================
// CONVERSION
// =============================================================================

func runConvert(input, referencePath string, offset int) error {
	doc, err := types.ParseDocumentType(convertType)
	if err != nil {
		return err
	}

	report, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read GPS report: %w", err)
	}
	ref, err := loadReference(referencePath)
	if err != nil {
		return err
	}

	conv := converter.New(appConfig.Conversion, logger.With(zap.String("file", filepath.Base(input))))
	res, err := conv.Convert(doc, report, ref, offset)
	if err != nil {
		return err
	}

	output := convertOutput
	if output == "" {
		output = utils.DefaultOutputPath(input, doc)
	}

	if convertDryRun {
		fmt.Printf("[dry-run] %s: %d row(s), %d unmatched item(s); would write %s\n",
			filepath.Base(input), res.Rows, res.Unmatched, output)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(output, res.CSV, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("%s -> %s (%d row(s), %d unmatched item(s))\n", filepath.Base(input), output, res.Rows, res.Unmatched)
	return nil
}
