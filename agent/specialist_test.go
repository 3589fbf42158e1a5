package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/model"
	"github.com/santis84/agents/tool"
)

func drainEmitted(emit chan core.Event) []core.Event {
	var events []core.Event
	for {
		select {
		case ev := <-emit:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestSpecialist_FinalTextResponse(t *testing.T) {
	llm := model.NewScriptedModel("scripted", model.TextResponse("here is your research"))

	a := NewSpecialist("researcher", llm, func(o *SpecialistOptions) {
		o.Instruction = NewInstructionFromText("You are a researcher.")
		o.EnableStreaming = false
		o.OutputKey = "research_result"
	})

	store := newMemStore()
	runCtx, emit := newAgentRunContext(t, store, "Faça uma pesquisa sobre IA.")

	require.NoError(t, a.Run(runCtx))

	events := drainEmitted(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "researcher", events[0].Author)
	assert.Equal(t, "here is your research", events[0].Text())
	require.NotNil(t, events[0].TurnComplete)
	assert.True(t, *events[0].TurnComplete)

	// OutputKey commits the final text to session state.
	sess, err := store.Get("sess-agent")
	require.NoError(t, err)
	v, ok := sess.GetState("research_result")
	require.True(t, ok)
	assert.Equal(t, "here is your research", v)
}

func TestSpecialist_ToolCallLoop(t *testing.T) {
	llm := model.NewScriptedModel("scripted",
		model.FunctionCallResponse("fc-1", "analyze_data", `{"data":"vendas"}`),
		model.TextResponse("analysis complete"),
	)

	a := NewSpecialist("data_analyst", llm, func(o *SpecialistOptions) {
		o.EnableStreaming = false
	})
	a.RegisterTool(tool.NewAnalyzeDataTool())

	store := newMemStore()
	runCtx, emit := newAgentRunContext(t, store, "Preciso de uma análise de dados.")

	require.NoError(t, a.Run(runCtx))

	events := drainEmitted(emit)
	require.Len(t, events, 3)

	// 1: the model's function call
	calls := events[0].GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "analyze_data", calls[0].Name)

	// 2: the tool response
	responses := events[1].GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "fc-1", responses[0].ID)
	assert.Equal(t, "Data analyzed, result generated: vendas", responses[0].Response)

	// 3: the final answer after the second model turn
	assert.Equal(t, "analysis complete", events[2].Text())
	assert.True(t, events[2].IsFinalResponse())
}

func TestSpecialist_UnknownToolBecomesErrorResponse(t *testing.T) {
	llm := model.NewScriptedModel("scripted",
		model.FunctionCallResponse("fc-1", "missing_tool", `{}`),
		model.TextResponse("could not run the tool"),
	)

	a := NewSpecialist("researcher", llm, func(o *SpecialistOptions) {
		o.EnableStreaming = false
	})

	store := newMemStore()
	runCtx, emit := newAgentRunContext(t, store, "pesquisa")

	// Tool resolution failures are surfaced to the model, not the caller.
	require.NoError(t, a.Run(runCtx))

	events := drainEmitted(emit)
	require.Len(t, events, 3)
	responses := events[1].GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Error, "not found")
}

func TestSpecialist_HistoryBound(t *testing.T) {
	store := newMemStore()
	runCtx, _ := newAgentRunContext(t, store, "latest message")
	for i := 0; i < 30; i++ {
		require.NoError(t, store.AppendEvent("sess-agent", core.NewMessageEvent("run-agent", "assistant", "older")))
	}
	require.NoError(t, store.AppendEvent("sess-agent", core.NewMessageEvent("run-agent", "assistant", "newest")))
	require.NoError(t, runCtx.RefreshSession())

	llm := model.NewScriptedModel("scripted", model.TextResponse("ok"))
	a := NewSpecialist("researcher", llm, func(o *SpecialistOptions) {
		o.MaxHistoryMessages = 5
		o.EnableStreaming = false
	})

	contents := a.buildContents(runCtx)
	require.Len(t, contents, 5)
	assert.Equal(t, "newest", contents[4].Text())
}

func TestSpecialist_InstructionTemplateRendering(t *testing.T) {
	store := newMemStore()
	runCtx, _ := newAgentRunContext(t, store, "hello")
	require.NoError(t, store.ApplyDelta("sess-agent", map[string]any{"topic": "medicina"}))
	require.NoError(t, runCtx.RefreshSession())

	llm := model.NewScriptedModel("scripted", model.TextResponse("ok"))
	a := NewSpecialist("researcher", llm, func(o *SpecialistOptions) {
		o.Instruction = NewInstructionFromText("Research the topic {{.topic}}.")
	})

	instructions, err := a.resolveInstructions(runCtx)
	require.NoError(t, err)
	assert.Equal(t, "Research the topic medicina.", instructions)
}
