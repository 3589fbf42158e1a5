package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santis84/agents/core"
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

func newToolContext(t *testing.T) *core.ToolContext {
	t.Helper()
	store := newMemStore()
	sess, err := store.Create("sess-tool")
	require.NoError(t, err)

	runCtx := core.NewRunContext(
		context.Background(),
		"sess-tool", "run-tool",
		core.AgentInfo{Name: "data_analyst", Type: "specialist"},
		core.NewUserContent("hi"),
		make(chan core.Event, 8), nil,
		sess, store,
		logging.NoOpLogger{},
	)

	return core.NewToolContext(runCtx, "fc-1")
}

func TestFunctionTool_CallSuccess(t *testing.T) {
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	result, err := sum.Call(newToolContext(t), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	echo := NewFunctionToolFromStruct(
		"echo",
		"Echo the message back",
		struct {
			Message string `json:"message"`
		}{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["message"], nil
		},
	)

	_, err := echo.Call(newToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "echo", toolErr.Tool)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	failing := NewFunctionTool(
		"failing",
		"Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	)

	_, err := failing.Call(newToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestFunctionTool_PreservesCustomToolError(t *testing.T) {
	custom := NewFunctionTool(
		"custom",
		"Returns a custom coded error",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, NewToolError("custom", "quota exhausted", "RATE_LIMITED")
		},
	)

	_, err := custom.Call(newToolContext(t), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestAnalyzeDataTool(t *testing.T) {
	analyze := NewAnalyzeDataTool()
	assert.Equal(t, "analyze_data", analyze.Name())

	result, err := analyze.Call(newToolContext(t), map[string]any{"data": "sales numbers"})
	require.NoError(t, err)
	assert.Equal(t, "Data analyzed, result generated: sales numbers", result)
}
