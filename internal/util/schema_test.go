package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readFileParams struct {
	Path    string `json:"path" description:"Path of the file to read"`
	Offset  int    `json:"offset,omitempty"`
	Verbose *bool  `json:"verbose"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(readFileParams{})

	assert.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	require.Contains(t, props, "path")
	require.Contains(t, props, "offset")
	require.Contains(t, props, "verbose")

	pathProp := props["path"].(map[string]any)
	assert.Equal(t, "string", pathProp["type"])
	assert.Equal(t, "Path of the file to read", pathProp["description"])

	// omitempty and pointer fields are optional
	required := schema["required"].([]string)
	assert.Equal(t, []string{"path"}, required)
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(readFileParams{})

	err := ValidateParameters(map[string]any{"path": "vendas.txt"}, schema)
	assert.NoError(t, err)

	err = ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "path", vErr.Field)

	err = ValidateParameters(map[string]any{"path": 42}, schema)
	require.Error(t, err)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "path", vErr.Field)

	// JSON numbers arrive as float64 and must pass integer checks
	err = ValidateParameters(map[string]any{"path": "x", "offset": float64(3)}, schema)
	assert.NoError(t, err)

	// extra fields are tolerated
	err = ValidateParameters(map[string]any{"path": "x", "unknown": true}, schema)
	assert.NoError(t, err)
}

func TestRenderTemplateBasic(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)

	out, err = RenderTemplate("next agent is {{.next_agent}}", map[string]any{"next_agent": "researcher"})
	require.NoError(t, err)
	assert.Equal(t, "next agent is researcher", out)

	out, err = RenderTemplate("shout: {{upper .word}}", map[string]any{"word": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "shout: HI", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
