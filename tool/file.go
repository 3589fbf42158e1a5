package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santis84/agents/core"
)

type readFileArgs struct {
	Path string `json:"path" description:"Path of the file to read, relative to the workspace"`
}

type writeFileArgs struct {
	Path    string `json:"path" description:"Path of the file to write, relative to the workspace"`
	Content string `json:"content" description:"Content to write to the file"`
}

// resolvePath anchors a tool supplied path inside the workspace directory and
// rejects traversal outside of it. An empty workspace means paths are used
// as given.
func resolvePath(workspace, path string) (string, bool) {
	if workspace == "" {
		return path, true
	}
	full := filepath.Join(workspace, filepath.Clean("/"+path))
	rel, err := filepath.Rel(workspace, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return full, true
}

// NewReadFileTool returns a tool that reads a file from the workspace.
//
// I/O failures are reported as result strings rather than errors so the model
// sees them as tool output and can react conversationally, matching how a
// missing file is an expected outcome and not a runtime fault.
func NewReadFileTool(workspace string) *FunctionTool {
	return NewFunctionToolFromStruct(
		"read_file",
		"Read the contents of a file at the given path",
		readFileArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			path, _ := args["path"].(string)

			full, ok := resolvePath(workspace, path)
			if !ok {
				return fmt.Sprintf("file not found at %s", path), nil
			}

			data, err := os.ReadFile(full)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Sprintf("file not found at %s", path), nil
				}
				return fmt.Sprintf("could not read file at %s: %v", path, err), nil
			}

			toolCtx.Logger().Debug("tool.read_file", "path", path, "bytes", len(data))

			return string(data), nil
		},
	)
}

// NewWriteFileTool returns a tool that writes content to a file in the
// workspace, creating parent directories as needed. Failures are reported as
// result strings, mirroring NewReadFileTool.
func NewWriteFileTool(workspace string) *FunctionTool {
	return NewFunctionToolFromStruct(
		"write_file",
		"Write content to a file at the given path",
		writeFileArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)

			full, ok := resolvePath(workspace, path)
			if !ok {
				return fmt.Sprintf("could not write file at %s: path escapes workspace", path), nil
			}

			if dir := filepath.Dir(full); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Sprintf("could not write file at %s: %v", path, err), nil
				}
			}

			if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
				return fmt.Sprintf("could not write file at %s: %v", path, err), nil
			}

			toolCtx.Logger().Debug("tool.write_file", "path", path, "bytes", len(content))

			return fmt.Sprintf("file written successfully at %s", path), nil
		},
	)
}
