package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/internal/util"
	"github.com/santis84/agents/model"
	"github.com/santis84/agents/tool"
)

// SpecialistOptions configures a Specialist instance.
//
// Use functional options with NewSpecialist to override defaults.
type SpecialistOptions struct {
	Instruction        Instruction
	EnableStreaming    bool
	OutputKey          string
	MaxHistoryMessages int
	Tools              map[string]tool.Tool
}

// Specialist is a model-backed agent that runs as a graph node.
//
// One Run is a model turn loop: the rendered instruction, the bounded
// conversation history and the registered tool declarations are sent to the
// model; responses stream out as events; requested tools execute through a
// ToolContext and their results feed the next model turn, until the model
// produces a final response with no pending calls.
type Specialist struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              map[string]tool.Tool
	enableStreaming    bool
	outputKey          string
	maxHistoryMessages int
}

// NewSpecialist creates a model-backed agent with sensible defaults: a
// generic instruction, streaming enabled, and a 20-message history bound.
func NewSpecialist(name string, llm model.Model, optFns ...func(o *SpecialistOptions)) *Specialist {
	opts := SpecialistOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name)),
		EnableStreaming:    true,
		MaxHistoryMessages: 20,
		Tools:              make(map[string]tool.Tool),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Specialist{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              opts.Tools,
		enableStreaming:    opts.EnableStreaming,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
	}
}

// RegisterTool adds a tool to the agent's capability set.
func (a *Specialist) RegisterTool(t tool.Tool) { a.tools[t.Name()] = t }

// RegisterTools adds multiple tools to the agent's capability set.
func (a *Specialist) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// HasTool checks if a tool is registered with the agent.
func (a *Specialist) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools.
func (a *Specialist) ListTools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	return names
}

// Run implements core.Agent. It repeats model turns until a final response.
func (a *Specialist) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "run", runCtx.RunID)

	for {
		last, err := a.runOnce(runCtx)
		if err != nil {
			return err
		}
		if last == nil {
			return fmt.Errorf("agent %s: model produced no response", a.Name())
		}

		// A function response means the model gets another turn to react.
		if len(last.GetFunctionResponses()) > 0 {
			continue
		}

		if last.IsFinalResponse() {
			if a.outputKey != "" {
				runCtx.SetState(a.outputKey, last.Text())
				if err := runCtx.CommitStateDelta(); err != nil {
					return err
				}
			}

			runCtx.LogDebug("agent.run.complete", "agent", a.Name())

			return nil
		}

		runCtx.LogWarn("agent.run.unexpected_last_event", "agent", a.Name(), "event_id", last.ID)

		return nil
	}
}

// runOnce performs one model turn, including any tool executions, and returns
// the last emitted event.
func (a *Specialist) runOnce(runCtx *core.RunContext) (*core.Event, error) {
	// Reload so this turn sees events persisted by the previous one.
	if err := runCtx.RefreshSession(); err != nil {
		return nil, err
	}

	instructions, err := a.resolveInstructions(runCtx)
	if err != nil {
		return nil, fmt.Errorf("agent %s: resolve instructions: %w", a.Name(), err)
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     a.buildContents(runCtx),
		Stream:       a.enableStreaming,
	}
	if a.llm.Info().SupportsTools {
		req.Tools = a.toolDefinitions()
	}

	respCh, errCh := a.llm.Generate(runCtx.Context, req)

	var last *core.Event

	start := time.Now()

	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				runCtx.LogInfo("agent.model.turn", "agent", a.Name(), "model", a.llm.Info().Name, "duration_ms", time.Since(start).Milliseconds())
				return last, nil
			}

			ev, err := a.handleResponse(runCtx, resp)
			if err != nil {
				return nil, err
			}
			last = ev

		case err, ok := <-errCh:
			if !ok {
				errCh = nil // closed; stop selecting on it
				continue
			}
			if err != nil {
				runCtx.LogError("agent.model.error", "agent", a.Name(), "model", a.llm.Info().Name, "error", err.Error())
				return nil, fmt.Errorf("agent %s: model error: %w", a.Name(), err)
			}

		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	}
}

// handleResponse emits the model response as an event and executes any
// requested tool calls, returning the last event it produced.
func (a *Specialist) handleResponse(runCtx *core.RunContext, resp model.Response) (*core.Event, error) {
	ev := core.NewEvent(runCtx.RunID, a.Name())
	content := resp.Content
	ev.Content = &content
	partial := resp.Partial
	ev.Partial = &partial

	if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete
	}

	if err := runCtx.EmitEvent(ev); err != nil {
		return nil, err
	}

	// The runner signals resume once the event is persisted.
	if !ev.IsPartial() {
		if err := runCtx.WaitForResume(); err != nil {
			return nil, err
		}
	}

	last := &ev

	for _, fnCall := range ev.GetFunctionCalls() {
		respEv, err := a.executeToolCall(runCtx, fnCall)
		if err != nil {
			return nil, err
		}
		last = respEv
	}

	return last, nil
}

// executeToolCall runs one requested tool and emits its function response
// event. Tool failures become response payload errors so the model can react;
// they never abort the run.
func (a *Specialist) executeToolCall(runCtx *core.RunContext, fnCall core.FunctionCall) (*core.Event, error) {
	toolCtx := core.NewToolContext(runCtx, fnCall.ID)

	start := time.Now()
	result, err := a.executeTool(toolCtx, fnCall.Name, fnCall.Arguments)
	runCtx.LogInfo("agent.tool.executed", "agent", a.Name(), "tool", fnCall.Name, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)

	respEv := core.NewFunctionResponseEvent(runCtx.RunID, a.Name(), fnCall.ID, fnCall.Name, result, err)
	toolCtx.ApplyActions(&respEv)

	if emitErr := runCtx.EmitEvent(respEv); emitErr != nil {
		return nil, emitErr
	}
	if resumeErr := runCtx.WaitForResume(); resumeErr != nil {
		return nil, resumeErr
	}

	return &respEv, nil
}

// executeTool deserializes JSON arguments and invokes the named tool.
func (a *Specialist) executeTool(toolCtx *core.ToolContext, toolName, args string) (interface{}, error) {
	t, exists := a.tools[toolName]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", toolName)
	}

	argsMap := make(map[string]interface{})
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return t.Call(toolCtx, argsMap)
}

// resolveInstructions produces the system prompt: the instruction source is
// resolved then rendered as a template against session state.
func (a *Specialist) resolveInstructions(runCtx *core.RunContext) (string, error) {
	text, err := a.instruction.Resolve(runCtx)
	if err != nil {
		return "", err
	}

	var state map[string]any
	if runCtx.Session != nil {
		state = runCtx.Session.Clone().State
	}

	return util.RenderTemplate(text, state)
}

// buildContents converts the bounded conversation history into model contents.
func (a *Specialist) buildContents(runCtx *core.RunContext) []core.Content {
	if runCtx.Session == nil {
		return []core.Content{runCtx.UserContent}
	}

	history := runCtx.Session.GetConversationHistory()
	if a.maxHistoryMessages > 0 && len(history) > a.maxHistoryMessages {
		history = history[len(history)-a.maxHistoryMessages:]
	}

	contents := make([]core.Content, 0, len(history))
	for _, ev := range history {
		contents = append(contents, *ev.Content)
	}

	return contents
}

func (a *Specialist) toolDefinitions() []model.ToolDefinition {
	if len(a.tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}
