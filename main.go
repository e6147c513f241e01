// =============================================================================
// GPS to ERP Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   gpsconv convert INPUT.xlsx ERP.csv  - Convert one GPS report
//   gpsconv process --reference ERP.csv - Convert every report in input_dir
//   gpsconv serve                       - Run the upload form and JSON API
//   gpsconv version                     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Conversion pipeline, parsers, HTTP service, storage
//   - pkg/       : File management utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/GPS-to-ERP-conversion/cmd"
)

func main() {
	cmd.Execute()
}
