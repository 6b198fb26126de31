// =============================================================================
// SAF-T PT Generator - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   saft version
//
// OUTPUT:
//   SAF-T PT Generator
//   Version:      1.0.0
//   SAF-T:        1.04_01
//   Build Date:   2024-01-01
//   Go Version:   go1.24.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/LosLebos/SAFT-T-Portugal/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, the SAF-T file version it produces, the build date and the Go runtime version.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "SAF-T PT Generator")
		fmt.Fprintf(out, "Version:      %s\n", Version)
		fmt.Fprintf(out, "SAF-T:        %s\n", saft.AuditFileVersion)
		fmt.Fprintf(out, "Build Date:   %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version:   %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
