// Package cmd is the CLI front door: a cobra root command plus one
// subcommand per control-plane operation, collapsed into a single
// package since this daemon's subcommand count doesn't warrant a
// separate cli/ split.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// defaultBaseDir is the daemon's filesystem base, overridable with
// --base-dir or UART_MONITOR_BASE_DIR.
const defaultBaseDir = "/tmp/uart-monitor"

// Root is the top-level "uart-monitor" command.
var Root = &cobra.Command{
	Use:   "uart-monitor",
	Short: "Monitor UART output from USB-connected serial devices",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()
		return nil
	},
}

func init() {
	Root.PersistentFlags().String("base-dir", defaultBaseDir, "daemon base directory (env UART_MONITOR_BASE_DIR)")
}
