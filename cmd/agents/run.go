package main

import (
	"github.com/spf13/cobra"

	"github.com/santis84/agents/core"
)

var runSessionID string

var runCmd = &cobra.Command{
	Use:   "run \"<message>\"",
	Short: "Run a single conversation",
	Long: `run routes one user message through the orchestrator graph and
prints the resulting events. Reusing --session keeps the conversation
history across invocations when a persistent storage backend is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeStore, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		return executeRun(cmd.Context(), r, runSessionID, args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runSessionID, "session", core.NewID(), "session id to append this message to")
	rootCmd.AddCommand(runCmd)
}
