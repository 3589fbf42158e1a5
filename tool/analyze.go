package tool

import (
	"fmt"

	"github.com/santis84/agents/core"
)

type analyzeDataArgs struct {
	Data string `json:"data" description:"Data to analyze"`
}

// NewAnalyzeDataTool returns the data analysis tool used by the data analyst
// agent. The analysis itself is a placeholder; it exists so the model turn
// exercises a full function call round trip.
func NewAnalyzeDataTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		"analyze_data",
		"Run an analysis over the provided data and produce a result",
		analyzeDataArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			data, _ := args["data"].(string)

			toolCtx.Logger().Debug("tool.analyze_data", "input_len", len(data))

			return fmt.Sprintf("Data analyzed, result generated: %s", data), nil
		},
	)
}
