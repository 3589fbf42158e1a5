package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
	"github.com/santis84/agents/logging"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
}

func newMemStore() *memStore { return &memStore{sessions: map[string]*core.Session{}} }

func (s *memStore) get(id string) *core.Session {
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = core.NewSession(id)
	}
	return s.sessions[id]
}

func (s *memStore) Create(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).Clone(), nil
}

func (s *memStore) Get(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).Clone(), nil
}

func (s *memStore) AppendEvent(id string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).AddEvent(ev)
	return nil
}

func (s *memStore) ApplyDelta(id string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).MergeState(delta)
	return nil
}

func demoRules() []RouteRule {
	return []RouteRule{
		{Keyword: "análise de dados", Target: "data_analyst"},
		{Keyword: "pesquisa", Target: "researcher"},
		{Keyword: "criação de conteúdo", Target: "content_writer"},
	}
}

func newAgentRunContext(t *testing.T, store *memStore, userMessage string) (*core.RunContext, chan core.Event) {
	t.Helper()
	if store == nil {
		store = newMemStore()
	}
	sess, err := store.Create("sess-agent")
	require.NoError(t, err)

	require.NoError(t, store.AppendEvent("sess-agent", core.NewUserMessageEvent("run-agent", userMessage)))
	sess, err = store.Get("sess-agent")
	require.NoError(t, err)

	emit := make(chan core.Event, 64)
	runCtx := core.NewRunContext(
		context.Background(),
		"sess-agent", "run-agent",
		core.AgentInfo{Name: "orchestrator", Type: "node"},
		core.NewUserContent(userMessage),
		emit, nil,
		sess, store,
		logging.NoOpLogger{},
	)
	return runCtx, emit
}

func TestOrchestrator_Decide(t *testing.T) {
	o := NewOrchestrator("orchestrator", demoRules())

	tests := []struct {
		message string
		want    string
	}{
		{"Preciso de uma análise de dados sobre o arquivo 'vendas.txt'.", "data_analyst"},
		{"Faça uma pesquisa sobre o impacto da IA na medicina.", "researcher"},
		{"PESQUISA urgente", "researcher"},
		{"Quero ANÁLISE DE DADOS agora", "data_analyst"},
		{"Preciso de criação de conteúdo para o blog", "content_writer"},
		{"bom dia", graph.End},
		{"", graph.End},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, o.Decide(tt.message), "message: %q", tt.message)
	}
}

func TestOrchestrator_FirstMatchWins(t *testing.T) {
	o := NewOrchestrator("orchestrator", demoRules())

	// Both phrases present; the earlier rule decides.
	got := o.Decide("faça uma análise de dados e depois uma pesquisa")
	assert.Equal(t, "data_analyst", got)

	reversed := NewOrchestrator("orchestrator", []RouteRule{
		{Keyword: "pesquisa", Target: "researcher"},
		{Keyword: "análise de dados", Target: "data_analyst"},
	})
	assert.Equal(t, "researcher", reversed.Decide("faça uma análise de dados e depois uma pesquisa"))
}

func TestOrchestrator_RunEmitsRoutingEvent(t *testing.T) {
	store := newMemStore()
	runCtx, emit := newAgentRunContext(t, store, "Faça uma pesquisa sobre IA.")

	o := NewOrchestrator("orchestrator", demoRules())
	require.NoError(t, o.Run(runCtx))

	ev := <-emit
	assert.Equal(t, "orchestrator", ev.Author)
	assert.Contains(t, ev.Text(), "researcher")
	require.NotNil(t, ev.Actions.NextAgent)
	assert.Equal(t, "researcher", *ev.Actions.NextAgent)
	assert.Equal(t, "researcher", ev.Actions.StateDelta[core.StateNextAgent])
}

func TestOrchestrator_RouterReadsState(t *testing.T) {
	store := newMemStore()
	runCtx, _ := newAgentRunContext(t, store, "qualquer coisa")

	o := NewOrchestrator("orchestrator", demoRules())
	router := o.Router()

	// No decision stored yet: fall back to termination.
	label, err := router(runCtx)
	require.NoError(t, err)
	assert.Equal(t, graph.End, label)

	runCtx.SetState(core.StateNextAgent, "data_analyst")
	label, err = router(runCtx)
	require.NoError(t, err)
	assert.Equal(t, "data_analyst", label)
}
