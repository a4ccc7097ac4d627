package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "otf",
	Short: "OpenTraceFabric - Reconfigurable-chip fabric device tools",
	Long: `OpenTraceFabric (otf) builds and inspects the wire-connectivity model
of a reconfigurable chip from its fabric report:
  - Generate a compact binary device from a fabric report
  - Inspect a generated device file
  - Re-verify a device file's structural invariants

Examples:
  otf generate part.frpt -o part.otfd       # Build device from report
  otf generate part.frpt -p part.pins       # Include package pinout
  otf info part.otfd --tile 0,1             # Inspect one tile
  otf check part.otfd                       # Verify invariants`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the CLI logger: silent unless --verbose is given.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
