package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// The two conversations the original demo ships with: one routed to the data
// analyst, one to the researcher.
var demoMessages = []string{
	"Preciso de uma análise de dados sobre o arquivo 'vendas.txt'.",
	"Faça uma pesquisa sobre o impacto da IA na medicina.",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in example conversations",
	Long: `demo builds the canonical orchestrator graph and feeds it the two
example messages, printing every intermediate event: routing decisions,
tool calls and responses, and the specialists' answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeStore, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		for i, message := range demoMessages {
			fmt.Printf("=== Conversation %d ===\n", i+1)
			sessionID := fmt.Sprintf("demo-%d", i+1)
			if err := executeRun(cmd.Context(), r, sessionID, message); err != nil {
				return err
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
