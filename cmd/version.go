// =============================================================================
// GPS to ERP Converter - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   gpsconv version
//
// OUTPUT:
//   GPS to ERP Converter
//   Version:    1.0.0
//   Build Date: 2025-08-01
//   Go Version: go1.24.11
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and BuildDate are set at build time:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/GPS-to-ERP-conversion/cmd.Version=1.0.0'"
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	// Skip config loading so version works anywhere.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("GPS to ERP Converter")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
