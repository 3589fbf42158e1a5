package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santis84/agents/agent"
	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
	"github.com/santis84/agents/model"
	"github.com/santis84/agents/session"
	"github.com/santis84/agents/tool"
)

func demoRules() []agent.RouteRule {
	return []agent.RouteRule{
		{Keyword: "análise de dados", Target: "data_analyst"},
		{Keyword: "pesquisa", Target: "researcher"},
		{Keyword: "criação de conteúdo", Target: "content_writer"},
	}
}

// buildDemoGraph wires the orchestrator and the three specialists the way the
// CLI does: conditional edges out of the orchestrator, static edges back.
func buildDemoGraph(t *testing.T, analyst, researcher, writer model.Model) *graph.CompiledGraph {
	t.Helper()

	orch := agent.NewOrchestrator("orchestrator", demoRules())

	analystAgent := agent.NewSpecialist("data_analyst", analyst, func(o *agent.SpecialistOptions) {
		o.EnableStreaming = false
		o.OutputKey = "analysis_result"
	})
	analystAgent.RegisterTool(tool.NewAnalyzeDataTool())

	researcherAgent := agent.NewSpecialist("researcher", researcher, func(o *agent.SpecialistOptions) {
		o.EnableStreaming = false
	})
	writerAgent := agent.NewSpecialist("content_writer", writer, func(o *agent.SpecialistOptions) {
		o.EnableStreaming = false
	})

	g, err := graph.NewStateGraph().
		AddNode("orchestrator", orch).
		AddNode("data_analyst", analystAgent).
		AddNode("researcher", researcherAgent).
		AddNode("content_writer", writerAgent).
		SetEntryPoint("orchestrator").
		AddConditionalEdges("orchestrator", orch.Router(), map[string]string{
			"data_analyst":   "data_analyst",
			"researcher":     "researcher",
			"content_writer": "content_writer",
		}).
		AddEdge("data_analyst", "orchestrator").
		AddEdge("researcher", "orchestrator").
		AddEdge("content_writer", "orchestrator").
		Compile()
	require.NoError(t, err)

	return g
}

// collect drains the event and error channels until both close.
func collect(t *testing.T, eventsCh <-chan core.Event, errorsCh <-chan error) ([]core.Event, []error) {
	t.Helper()

	var events []core.Event
	var errs []error

	timeout := time.After(5 * time.Second)
	for eventsCh != nil || errorsCh != nil {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				eventsCh = nil
				continue
			}
			events = append(events, ev)
		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			errs = append(errs, err)
		case <-timeout:
			t.Fatal("timed out waiting for run to finish")
		}
	}

	return events, errs
}

func TestRunner_AnalysisRequestRunsToolLoop(t *testing.T) {
	analyst := model.NewScriptedModel("scripted-analyst",
		model.FunctionCallResponse("call-1", "analyze_data", `{"data":"conteúdo de vendas.txt"}`),
		model.TextResponse("Análise concluída: as vendas cresceram 12% no trimestre."),
	)

	g := buildDemoGraph(t, analyst, model.NewScriptedModel("unused-r"), model.NewScriptedModel("unused-w"))
	store := session.NewInMemoryStore()
	r := New(g, func(o *Options) { o.SessionStore = store })

	runID, eventsCh, errorsCh, err := r.Run(context.Background(),
		"demo-1", core.NewUserContent("Preciso de uma análise de dados sobre o arquivo 'vendas.txt'."))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	events, errs := collect(t, eventsCh, errorsCh)
	require.Empty(t, errs)

	var authors []string
	for _, ev := range events {
		authors = append(authors, ev.Author)
	}
	// Orchestrator routes, the analyst calls its tool, reacts, and control
	// returns to the orchestrator which terminates.
	assert.Equal(t, []string{
		"orchestrator", "data_analyst", "data_analyst", "data_analyst", "orchestrator",
	}, authors)

	assert.Contains(t, events[0].Text(), "data_analyst")

	calls := events[1].GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "analyze_data", calls[0].Name)
	// The routing delta belongs to the orchestrator's event only; specialist
	// events must not re-carry it.
	assert.NotContains(t, events[1].Actions.StateDelta, core.StateNextAgent)

	responses := events[2].GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "analyze_data", responses[0].Name)

	assert.Contains(t, events[3].Text(), "Análise concluída")
	assert.Contains(t, events[4].Text(), "finishing the run")

	sess, err := store.Get("demo-1")
	require.NoError(t, err)

	next, ok := sess.GetState(core.StateNextAgent)
	require.True(t, ok)
	assert.Equal(t, graph.End, next)

	result, ok := sess.GetState("analysis_result")
	require.True(t, ok)
	assert.Contains(t, result, "Análise concluída")
}

func TestRunner_ResearchRequestRoutesToResearcher(t *testing.T) {
	researcher := model.NewScriptedModel("scripted-researcher",
		model.TextResponse("Resumo: a IA já apoia diagnósticos por imagem na medicina."),
	)

	g := buildDemoGraph(t, model.NewScriptedModel("unused-a"), researcher, model.NewScriptedModel("unused-w"))
	r := New(g)

	_, eventsCh, errorsCh, err := r.Run(context.Background(),
		"demo-2", core.NewUserContent("Faça uma pesquisa sobre o impacto da IA na medicina."))
	require.NoError(t, err)

	events, errs := collect(t, eventsCh, errorsCh)
	require.Empty(t, errs)
	require.Len(t, events, 3)

	assert.Equal(t, "orchestrator", events[0].Author)
	assert.Contains(t, events[0].Text(), "researcher")
	assert.Equal(t, "researcher", events[1].Author)
	assert.Contains(t, events[1].Text(), "medicina")
	assert.Contains(t, events[2].Text(), "finishing the run")
}

func TestRunner_UnmatchedMessageEndsImmediately(t *testing.T) {
	g := buildDemoGraph(t,
		model.NewScriptedModel("unused-a"),
		model.NewScriptedModel("unused-r"),
		model.NewScriptedModel("unused-w"))
	r := New(g)

	_, eventsCh, errorsCh, err := r.Run(context.Background(),
		"demo-3", core.NewUserContent("Bom dia!"))
	require.NoError(t, err)

	events, errs := collect(t, eventsCh, errorsCh)
	require.Empty(t, errs)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Text(), "finishing the run")
}

func TestRunner_PersistsHistory(t *testing.T) {
	researcher := model.NewScriptedModel("scripted-researcher",
		model.TextResponse("Pronto."),
	)
	g := buildDemoGraph(t, model.NewScriptedModel("unused-a"), researcher, model.NewScriptedModel("unused-w"))
	store := session.NewInMemoryStore()
	r := New(g, func(o *Options) { o.SessionStore = store })

	_, eventsCh, errorsCh, err := r.Run(context.Background(),
		"demo-4", core.NewUserContent("Faça uma pesquisa sobre Go."))
	require.NoError(t, err)
	_, errs := collect(t, eventsCh, errorsCh)
	require.Empty(t, errs)

	sess, err := store.Get("demo-4")
	require.NoError(t, err)

	// User message plus the three emitted events.
	events := sess.GetEvents()
	require.Len(t, events, 4)
	assert.Equal(t, "user", events[0].Author)
	assert.Equal(t, "Faça uma pesquisa sobre Go.", events[0].Text())
}

func TestRunner_CancelUnknownRun(t *testing.T) {
	g := buildDemoGraph(t,
		model.NewScriptedModel("a"),
		model.NewScriptedModel("r"),
		model.NewScriptedModel("w"))
	r := New(g)

	err := r.Cancel("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
