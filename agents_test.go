package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santis84/agents/agent"
	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
	"github.com/santis84/agents/model"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	orch := agent.NewOrchestrator("orchestrator", []agent.RouteRule{
		{Keyword: "pesquisa", Target: "researcher"},
	})

	researcher := agent.NewSpecialist("researcher",
		model.NewScriptedModel("scripted", model.TextResponse("Resumo pronto.")),
		func(o *agent.SpecialistOptions) { o.EnableStreaming = false })

	g, err := graph.NewStateGraph().
		AddNode("orchestrator", orch).
		AddNode("researcher", researcher).
		SetEntryPoint("orchestrator").
		AddConditionalEdges("orchestrator", orch.Router(), map[string]string{
			"researcher": "researcher",
		}).
		AddEdge("researcher", "orchestrator").
		Compile()
	require.NoError(t, err)

	return New(g)
}

func TestApp_RunSync(t *testing.T) {
	app := newTestApp(t)

	runID, events, err := app.RunSync(context.Background(),
		"sess-1", core.NewUserContent("Faça uma pesquisa sobre Go."))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	// Routing event, answer, terminating routing event.
	require.Len(t, events, 3)
	assert.Equal(t, "orchestrator", events[0].Author)
	assert.Equal(t, "researcher", events[1].Author)
	assert.Equal(t, "Resumo pronto.", events[1].Text())
	assert.Contains(t, events[2].Text(), "finishing the run")
}

func TestApp_RunSyncUnroutedMessage(t *testing.T) {
	app := newTestApp(t)

	_, events, err := app.RunSync(context.Background(),
		"sess-2", core.NewUserContent("olá"))
	require.NoError(t, err)
	require.Len(t, events, 1)

	sess, err := app.Runner().SessionStore().Get("sess-2")
	require.NoError(t, err)

	next, ok := sess.GetState(core.StateNextAgent)
	require.True(t, ok)
	assert.Equal(t, graph.End, next)
}
