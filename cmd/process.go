// =============================================================================
// GPS to ERP Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every GPS report in
// the input directory in one run.
//
// COMMAND USAGE:
//   gpsconv process --reference ERP.csv [flags]
//
// FLAGS:
//   --reference : ERP item export shared by every report (required)
//   --type      : po (default) or so
//   --dry-run   : Convert without writing output or archiving
//   --single    : Process only one report (specify with --file)
//   --file      : Path to the report processed with --single
//
// PROCESSING PIPELINE:
//   1. Discover *.xlsx reports in the input directory
//   2. Parse the reference table once; it is shared read-only
//   3. Convert reports concurrently, at most max_concurrency at a time
//   4. Write each document to the output directory, archive the report
//   5. Write the error log (if any) and the run summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/converter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun        bool
	singleFile    bool
	filePath      string
	referenceFile string
	processType   string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every GPS report in the input directory",
	Long: `The process command scans the input directory for GPS reports (.xlsx) and
converts each of them with the same ERP reference table.

On success:
  - The converted CSV is placed in the output directory
  - The report is moved to the archive directory

On error:
  - The error is written to an error log in the log directory
  - The report remains in the input directory
  - Other reports continue unless continue_on_error is false

A summary of the run is written to the log directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&referenceFile, "reference", "", "ERP item export (.csv) used for every report")
	processCmd.Flags().StringVar(&processType, "type", "po", "Document to produce: po or so")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Convert without writing output files or archiving")
	processCmd.Flags().BoolVar(&singleFile, "single", false, "Process only a single report (use with --file)")
	processCmd.Flags().StringVar(&filePath, "file", "", "Report to process (used with --single)")
	_ = processCmd.MarkFlagRequired("reference")
}

// fileResult is the outcome of one report.
type fileResult struct {
	input     string
	output    string
	archived  string
	result    *converter.Result
	err       error
	skipped   bool
	processed time.Duration
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess() error {
	startTime := time.Now()

	doc, err := types.ParseDocumentType(processType)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(appConfig.InputDir, appConfig.OutputDir, appConfig.ArchiveDir, appConfig.LogDir)
	fm.ArchiveOnSuccess = !dryRun
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if singleFile {
		if filePath == "" {
			return fmt.Errorf("--single requires --file")
		}
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return err
		}
	}
	if len(inputFiles) == 0 {
		logger.Info("No GPS reports found", zap.String("input_dir", fm.InputDir))
		return nil
	}
	logger.Info("Found GPS reports", zap.Int("count", len(inputFiles)), zap.String("document", doc.String()))

	// =========================================================================
	// STEP 2: SHARED REFERENCE TABLE
	// =========================================================================

	ref, err := loadReference(referenceFile)
	if err != nil {
		return err
	}
	conv := converter.New(appConfig.Conversion, logger)
	offset := appConfig.Conversion.Offset()

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	var wg sync.WaitGroup
	var failed atomic.Bool
	results := make(chan fileResult, len(inputFiles))
	sem := make(chan struct{}, appConfig.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if failed.Load() && !appConfig.ContinueOnError {
				results <- fileResult{input: path, skipped: true}
				return
			}
			r := processFile(fm, conv, ref, doc, offset, path)
			if r.err != nil {
				failed.Store(true)
			}
			results <- r
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		Document:   doc,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry
	failures := make(map[string]error)
	var failureOrder []string
	skipped := 0

	for r := range results {
		name := filepath.Base(r.input)
		switch {
		case r.skipped:
			skipped++
		case r.err != nil:
			summary.FailedFiles++
			entry := utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    errorType(r.err),
				ErrorMessage: r.err.Error(),
			}
			if schemaErr, ok := validation.IsSchemaError(r.err); ok {
				entry.Missing = schemaErr.Missing
			}
			errorEntries = append(errorEntries, entry)
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: r.err.Error(),
				ErrorType:    entry.ErrorType,
			})
			failures[name] = r.err
			failureOrder = append(failureOrder, name)
		default:
			summary.SuccessfulFiles++
			summary.TotalRows += r.result.Rows
			summary.TotalUnmatched += r.result.Unmatched
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   name,
				OutputFile:  r.output,
				ArchivePath: r.archived,
				Rows:        r.result.Rows,
				Unmatched:   r.result.Unmatched,
				ProcessTime: r.processed,
			})
			fmt.Printf("  ✓ %s -> %s (%d rows, %d unmatched)\n", name, r.output, r.result.Rows, r.result.Unmatched)
		}
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: LOGS AND SUMMARY
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	if skipped > 0 {
		fmt.Printf("Skipped:         %d\n", skipped)
	}
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))
	if len(failureOrder) > 0 {
		fmt.Print("\n" + validation.FormatErrors(failures, failureOrder))
	}

	if !dryRun {
		if path, err := utils.WriteErrorLog(errorEntries, fm.LogDir); err != nil {
			logger.Error("Failed to write error log", zap.Error(err))
		} else if path != "" {
			fmt.Printf("Error log:       %s\n", path)
		}
		if path, err := utils.WriteSummaryLog(summary, fm.LogDir); err != nil {
			logger.Error("Failed to write summary", zap.Error(err))
		} else {
			fmt.Printf("Summary:         %s\n", path)
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d report(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFile converts one report, writes the document and archives the report.
func processFile(fm *utils.FileManager, conv *converter.Converter, ref *csvparser.CSVData, doc types.DocumentType, offset int, path string) fileResult {
	start := time.Now()
	r := fileResult{input: path, output: fm.OutputPath(path, doc)}

	report, err := os.ReadFile(path)
	if err != nil {
		r.err = fmt.Errorf("failed to read GPS report: %w", err)
		return r
	}

	r.result, r.err = conv.Convert(doc, report, ref, offset)
	if r.err != nil {
		return r
	}

	if !dryRun {
		if err := os.WriteFile(r.output, r.result.CSV, 0644); err != nil {
			r.err = fmt.Errorf("failed to write %s: %w", r.output, err)
			return r
		}
	}

	r.archived, err = fm.ArchiveProcessedFile(path)
	if err != nil {
		logger.Warn("Failed to archive report", zap.String("file", path), zap.Error(err))
		r.archived = ""
	}
	r.processed = time.Since(start)
	return r
}

func errorType(err error) string {
	if schema, ok := validation.SchemaOf(err); ok {
		return string(schema) + " schema"
	}
	return "conversion"
}
