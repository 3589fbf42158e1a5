// Command agents runs the multi-agent orchestration demo: an orchestrator
// node routes user messages to specialist agents (data analyst, researcher,
// content writer) over a compiled state graph, and specialists answer through
// an LLM with file and analysis tools.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
