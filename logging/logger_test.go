package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*RunLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf})
	return l, buf
}

// decodeLine unmarshals the first JSON log line written to buf.
func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line, _, _ := strings.Cut(buf.String(), "\n")
	require.NotEmpty(t, line, "no log output")

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestRunLogger_KeyValueArgsBecomeAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.Info("tool.call.success", "tool", "analyze_data", "duration_ms", int64(3))

	entry := decodeLine(t, buf)
	assert.Equal(t, "tool.call.success", entry["msg"])
	assert.Equal(t, "analyze_data", entry["tool"])
	assert.Equal(t, float64(3), entry["duration_ms"])
	assert.NotContains(t, entry["msg"], "%!")
}

func TestRunLogger_ContextualAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("runner").
		WithSession("sess-1", "run-1").
		WithContext("node", "orchestrator").
		Debug("graph.node.start", "step", 0)

	entry := decodeLine(t, buf)
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "orchestrator", entry["node"])
	assert.Equal(t, float64(0), entry["step"])
}

func TestRunLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Info("suppressed", "k", "v")
	assert.Empty(t, buf.String())

	l.Warn("emitted")
	entry := decodeLine(t, buf)
	assert.Equal(t, "emitted", entry["msg"])
}

func TestRunLogger_DanglingArgKeptUnderBadKey(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.Info("odd.args", "orphan")

	entry := decodeLine(t, buf)
	assert.Equal(t, "odd.args", entry["msg"])
	assert.Equal(t, "orphan", entry["!BADKEY"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("anything-else"))
}
