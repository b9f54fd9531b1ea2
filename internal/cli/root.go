// Package cli wires the benchmark suite's commands.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any
// subcommands.
var RootCmd = &cobra.Command{
	Use:     "surgekit",
	Short:   "Load benchmark suite for platform request and streaming endpoints",
	Version: version,
	Long: `Surgekit drives configurable concurrent load against a platform's
request endpoints (record CRUD, GraphQL, vector search, blob retrieval)
and streaming endpoints (WebSocket and SSE push), and reduces the
observed outcomes into latency and throughput statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(listCmd)
}
