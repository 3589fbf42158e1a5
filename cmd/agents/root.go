package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/santis84/agents/config"
	"github.com/santis84/agents/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logging.RunLogger
)

var rootCmd = &cobra.Command{
	Use:   "agents",
	Short: "agents is a multi-agent orchestration demo",
	Long: `agents routes user messages through an orchestrator to specialist
agents (data analyst, researcher, content writer). Specialists call file and
analysis tools through an LLM; control loops back to the orchestrator until
no further specialist is needed.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (searched in ., $HOME/.agents by default)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger = logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cfg.Log.AddSource)
}
