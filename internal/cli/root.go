// Package cli wires Scout's command tree: serve runs the HTTP search
// service, sweep reports (and optionally clears) orphaned blob rows,
// version prints build metadata. Configuration flows through
// internal/config's viper-backed Loader, following the same
// defaults-then-file-then-env-then-flags precedence for every command
// that touches the database.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd is Scout's entry point. It carries no RunE of its own —
// serve is the default operation but must be invoked explicitly so a
// bare `scoutd` prints usage instead of silently binding a socket.
var rootCmd = &cobra.Command{
	Use:   "scoutd",
	Short: "Scout is a multi-tenant full-text search service",
	Long: `Scout exposes a full-text search store over an embedded SQLite
database. Clients create named indexes, ingest documents with metadata
and attachments, and run ranked phrase searches over HTTP.`,
}

// Execute runs the command tree, exiting with status 1 on any error —
// a configuration error or a listener failure both count.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scoutd:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./scout.yaml, or $SCOUT_CONFIG)")
}
