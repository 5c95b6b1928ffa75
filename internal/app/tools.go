package app

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bigmoostache/context-pilot/internal/llm"
	"github.com/bigmoostache/context-pilot/internal/state"
	"github.com/bigmoostache/context-pilot/internal/tools"
)

// maxToolResultBytes caps what one tool call can feed back into the
// conversation.
const maxToolResultBytes = 16 * 1024

// DefaultTools is the built-in tool set offered to the model.
func DefaultTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read a file from the project and return its content.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path relative to the project root",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "list_files",
			Description: "List project files matching a glob pattern, e.g. **/*.go.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Glob pattern",
					},
				},
				"required": []string{"pattern"},
			},
		},
		{
			Name:        "search_files",
			Description: "Search file contents with a regular expression.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Regular expression",
					},
					"file_pattern": map[string]any{
						"type":        "string",
						"description": "Optional filename glob, e.g. *.go",
					},
				},
				"required": []string{"pattern"},
			},
		},
		{
			Name:        "update_notes",
			Description: "Replace the content of the shared notes context source.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{
						"type":        "string",
						"description": "The new notes content",
					},
				},
				"required": []string{"content"},
			},
		},
	}
}

// runTool executes one tool call. Every branch produces a result; a
// failed call reports IsError instead of aborting the turn.
func (m *Model) runTool(use state.ToolUse) state.ToolResult {
	result := state.ToolResult{ToolUseID: use.ID}

	switch use.Name {
	case "read_file":
		path, ok := stringArg(use.Input, "path")
		if !ok {
			return errResult(use, "missing required argument: path")
		}
		data, err := os.ReadFile(absPath(m.workDir, path))
		if err != nil {
			return errResult(use, err.Error())
		}
		result.Content = clampResult(string(data))

	case "list_files":
		pattern, ok := stringArg(use.Input, "pattern")
		if !ok {
			return errResult(use, "missing required argument: pattern")
		}
		out, _ := tools.Glob(pattern, m.workDir)
		result.Content = clampResult(out)

	case "search_files":
		pattern, ok := stringArg(use.Input, "pattern")
		if !ok {
			return errResult(use, "missing required argument: pattern")
		}
		filePattern, _ := stringArg(use.Input, "file_pattern")
		out, _ := tools.Grep(pattern, m.workDir, filePattern)
		result.Content = clampResult(out)

	case "update_notes":
		content, ok := stringArg(use.Input, "content")
		if !ok {
			return errResult(use, "missing required argument: content")
		}
		result.Content = m.updateNotes(content)

	default:
		return errResult(use, "unknown tool: "+use.Name)
	}
	return result
}

// updateNotes replaces the first notes source, creating one when none
// exists yet.
func (m *Model) updateNotes(content string) string {
	for _, src := range m.st.Sources {
		if src.Type == state.ContextNotes {
			src.Note = content
			return "Notes updated (" + src.ID + ")."
		}
	}
	src := m.st.AddSource(&state.ContextSource{Type: state.ContextNotes, Note: content})
	return "Notes created (" + src.ID + ")."
}

func errResult(use state.ToolUse, msg string) state.ToolResult {
	return state.ToolResult{ToolUseID: use.ID, Content: msg, IsError: true}
}

func stringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key].(string)
	return v, ok && v != ""
}

func clampResult(s string) string {
	if len(s) <= maxToolResultBytes {
		return s
	}
	// Back up so the cut never splits a UTF-8 sequence.
	cut := maxToolResultBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n… (truncated)"
}

func absPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

func joinBlocks(blocks []string) string {
	return strings.Join(blocks, "\n\n")
}
