// =============================================================================
// GPS to ERP Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter, including:
//   - GPS report discovery
//   - Archival of processed reports
//   - Output file naming
//   - Error and summary logs
//   - Retention cleanup of generated files
//
// ARCHIVAL STRATEGY:
//   - GPS reports are moved to the archive directory after a successful run
//   - Failed reports remain in the input directory
//   - Error and summary logs are written to the log directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/google/uuid"
)

// ReportExtension is the file extension of GPS reports.
const ReportExtension = ".xlsx"

// lockFilePrefix marks the lock files office suites leave next to open workbooks.
const lockFilePrefix = "~$"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch conversion.
type FileManager struct {
	// InputDir is the directory scanned for GPS reports.
	InputDir string

	// OutputDir is the directory converted CSV files are written to.
	OutputDir string

	// ArchiveDir is the directory processed reports are moved to.
	ArchiveDir string

	// LogDir receives error and summary logs.
	LogDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2025/08/01/report.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether reports are archived after conversion.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, archiveDir, logDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		ArchiveDir:       archiveDir,
		LogDir:           logDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.ArchiveDir, fm.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the GPS reports in the input directory.
//
// Only regular files ending in .xlsx (any case) are returned. Lock files
// starting with "~$" are skipped. The result is sorted by name so batch runs
// are reproducible.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, lockFilePrefix) {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ReportExtension) {
			continue
		}
		result = append(result, filepath.Join(fm.InputDir, name))
	}
	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveProcessedFile moves a converted report to the archive directory.
//
// RETURNS:
//   - The path to the archived file, or filePath when archival is disabled.
//   - An error if archival fails.
func (fm *FileManager) ArchiveProcessedFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.archivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string) string {
	fileName := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(fm.ArchiveDir, fileName)
	}
	now := time.Now()
	return filepath.Join(
		fm.ArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		fileName,
	)
}

// OutputPath returns where the batch run writes the document for a report.
func (fm *FileManager) OutputPath(input string, doc types.DocumentType) string {
	return filepath.Join(fm.OutputDir, Stem(input)+doc.Suffix())
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultOutputPath places the converted document next to the GPS report:
//
//	/data/GPS_0801.xlsx -> /data/GPS_0801_PO.csv
func DefaultOutputPath(input string, doc types.DocumentType) string {
	return filepath.Join(filepath.Dir(input), Stem(input)+doc.Suffix())
}

// GenerateOutputFileName returns a collision-free download name such as
// "GPS_0801_3f2a9c1e_PO.csv". Characters outside [A-Za-z0-9._-] in stem are
// replaced with "_".
func GenerateOutputFileName(stem string, doc types.DocumentType) string {
	stem = sanitizeName(stem)
	if stem == "" {
		stem = "gps"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return stem + "_" + id + doc.Suffix()
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single failed conversion.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string

	// Missing lists the absent columns of a schema error.
	Missing []string
}

// WriteErrorLog writes error entries to a timestamped log file in dir.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, dir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(dir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "GPS to ERP Converter - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"), len(entries))

	for i, entry := range entries {
		fmt.Fprintf(w, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)
		if len(entry.Missing) > 0 {
			fmt.Fprintf(w, "  Missing:    %s\n", strings.Join(entry.Missing, ", "))
		}
		w.WriteString("\n")
	}

	w.WriteString("================================================================================\n" +
		"End of Error Log\n")
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	Document        types.DocumentType
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRows       int
	TotalUnmatched  int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a successfully converted report.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	Rows        int
	Unmatched   int
	ProcessTime time.Duration
}

// FailedFileInfo describes a report that could not be converted.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes a processing summary to a timestamped file in dir.
func WriteSummaryLog(summary ProcessingSummary, dir string) (string, error) {
	summaryPath := filepath.Join(dir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "GPS to ERP Converter - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Document:   %s\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n"+
		"Statistics:\n"+
		"  Total Files:     %d\n"+
		"  Successful:      %d\n"+
		"  Failed:          %d\n"+
		"  Total Rows:      %d\n"+
		"  Unmatched Items: %d\n\n",
		summary.Document,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.TotalUnmatched)

	if len(summary.ProcessedFiles) > 0 {
		w.WriteString("Successful Files:\n")
		w.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(w, "  Output:       %s\n", pf.OutputFile)
			if pf.ArchivePath != "" && pf.ArchivePath != pf.InputFile {
				fmt.Fprintf(w, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(w, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(w, "  Unmatched:    %d\n", pf.Unmatched)
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		w.WriteString("Failed Files:\n")
		w.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	w.WriteString("================================================================================\n" +
		"End of Summary\n")
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldFiles removes regular files directly inside dir whose modification
// time is older than maxAge. A missing dir is not an error.
//
// RETURNS:
//   - The number of files removed.
//   - An error if a file cannot be inspected or removed.
func CleanOldFiles(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
