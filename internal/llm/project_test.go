package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigmoostache/context-pilot/internal/state"
)

func textMsg(id, role, content string) *state.Message {
	return &state.Message{ID: id, Role: role, Type: state.MessageText, Content: content}
}

func TestProjectAnthropicBasics(t *testing.T) {
	req := Request{
		Messages: []*state.Message{
			textMsg("m1", "user", "hello"),
			textMsg("m2", "assistant", "hi there"),
			textMsg("m3", "user", "and again"),
		},
		ContextItems: []state.ContextItem{
			{ID: "p1", Header: "File: main.go", Content: "package main"},
			{ID: "p2", Header: "Notes", Content: ""},
		},
	}
	msgs := projectAnthropic(req)

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	first := msgs[0].Content[0].Text
	assert.True(t, strings.HasPrefix(first, "=== File: main.go [p1] ===\npackage main"))
	assert.Contains(t, first, "[m1]: hello")
	// Empty context items render nothing; the wrapper appears once.
	assert.Equal(t, 1, strings.Count(first, "==="))
	assert.Equal(t, "[m2]: hi there", msgs[1].Content[0].Text)
	// Context only decorates the first projected text.
	assert.Equal(t, "[m3]: and again", msgs[2].Content[0].Text)
}

func TestProjectAnthropicSkipsDeletedAndEmpty(t *testing.T) {
	deleted := textMsg("m2", "assistant", "secret")
	deleted.Status = state.StatusDeleted
	req := Request{
		Messages: []*state.Message{
			textMsg("m1", "user", "hello"),
			deleted,
			{ID: "m3", Role: "assistant"},
		},
	}
	msgs := projectAnthropic(req)

	require.Len(t, msgs, 1)
	assert.Equal(t, "[m1]: hello", msgs[0].Content[0].Text)
}

func TestProjectAnthropicSummarySubstitution(t *testing.T) {
	summarized := textMsg("m1", "assistant", "a very long answer")
	summarized.Status = state.StatusSummarized
	summarized.Summary = "short version"
	msgs := projectAnthropic(Request{Messages: []*state.Message{summarized}})

	require.Len(t, msgs, 1)
	assert.Equal(t, "[m1]: short version", msgs[0].Content[0].Text)
}

func TestProjectAnthropicDanglingToolCallOmitted(t *testing.T) {
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "read_file", Input: map[string]any{"path": "a.go"}}},
	}
	req := Request{Messages: []*state.Message{textMsg("m1", "user", "go"), call}}
	msgs := projectAnthropic(req)

	// No result ever arrived for tu_1, so the call is not projected.
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
}

func TestProjectAnthropicResultBeforeCallOmitted(t *testing.T) {
	// A result that precedes its call in the log cannot license
	// projecting the call: the projected sequence would put the
	// tool_result before the tool_use.
	result := &state.Message{
		ID: "m1", Role: "user", Type: state.MessageToolResult,
		ToolResults: []state.ToolResult{{ToolUseID: "tu_1", Content: "stale"}},
	}
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "read_file", Input: map[string]any{}}},
	}
	msgs := projectAnthropic(Request{Messages: []*state.Message{result, call}})

	for _, msg := range msgs {
		for _, block := range msg.Content {
			assert.NotEqual(t, "tool_use", block.Type)
		}
	}
}

func TestProjectAnthropicContextNeedsOpeningUserMessage(t *testing.T) {
	req := Request{
		Messages: []*state.Message{
			textMsg("m1", "assistant", "unprompted"),
			textMsg("m2", "user", "hello"),
		},
		ContextItems: []state.ContextItem{
			{ID: "p1", Header: "File: main.go", Content: "package main"},
		},
	}
	msgs := projectAnthropic(req)

	// The opening message is the assistant's, so the context has no
	// slot and attaches nowhere.
	require.Len(t, msgs, 2)
	assert.Equal(t, "[m1]: unprompted", msgs[0].Content[0].Text)
	assert.Equal(t, "[m2]: hello", msgs[1].Content[0].Text)
}

func TestProjectAnthropicToolRoundTrip(t *testing.T) {
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		Content:  "let me look",
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "read_file", Input: nil}},
	}
	result := &state.Message{
		ID: "m3", Role: "user", Type: state.MessageToolResult,
		ToolResults: []state.ToolResult{{ToolUseID: "tu_1", Content: "package main"}},
	}
	req := Request{Messages: []*state.Message{textMsg("m1", "user", "go"), call, result}}
	msgs := projectAnthropic(req)

	require.Len(t, msgs, 3)
	assistant := msgs[1]
	require.Len(t, assistant.Content, 2)
	assert.Equal(t, "text", assistant.Content[0].Type)
	assert.Equal(t, "[m2]: let me look", assistant.Content[0].Text)
	use := assistant.Content[1]
	assert.Equal(t, "tool_use", use.Type)
	assert.Equal(t, "tu_1", use.ID)
	// nil input crosses the wire as an empty object, never null.
	assert.JSONEq(t, "{}", string(use.Input))

	res := msgs[2].Content[0]
	assert.Equal(t, "tool_result", res.Type)
	assert.Equal(t, "tu_1", res.ToolUseID)
	assert.Equal(t, "[m3]: package main", res.Content)
}

func TestProjectAnthropicPendingResults(t *testing.T) {
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "read_file", Input: map[string]any{}}},
	}
	req := Request{
		Messages:    []*state.Message{textMsg("m1", "user", "go"), call},
		ToolResults: []state.ToolResult{{ToolUseID: "tu_1", Content: "done"}},
	}
	msgs := projectAnthropic(req)

	// Pending results make the trailing call projectable and close the
	// turn with a user message of tool_result blocks.
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].Role)
	last := msgs[2]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "tool_result", last.Content[0].Type)
	assert.Equal(t, "done", last.Content[0].Content)
}

func TestProjectAnthropicCleanupMode(t *testing.T) {
	req := Request{
		Messages:     []*state.Message{textMsg("m1", "user", "hello")},
		ExtraContext: "=== File: main.go [p1] ===\npackage main",
	}
	msgs := projectAnthropic(req)

	require.Len(t, msgs, 2)
	last := msgs[1].Content[0].Text
	assert.True(t, strings.HasPrefix(last, cleanupInstruction))
	assert.Contains(t, last, "package main")
}

func TestProjectAnthropicMergesSameRole(t *testing.T) {
	req := Request{
		Messages: []*state.Message{
			textMsg("m1", "user", "first"),
			textMsg("m2", "user", "second"),
		},
	}
	msgs := projectAnthropic(req)

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 2)
}

func TestProjectGrokShape(t *testing.T) {
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "grep", Input: map[string]any{"pattern": "x"}}},
	}
	result := &state.Message{
		ID: "m3", Role: "user", Type: state.MessageToolResult,
		ToolResults: []state.ToolResult{{ToolUseID: "tu_1", Content: "3 matches"}},
	}
	req := Request{
		Messages:     []*state.Message{textMsg("m1", "user", "find x"), call, result},
		ContextItems: []state.ContextItem{{ID: "p1", Header: "Notes", Content: "remember"}},
		SystemPrompt: "be terse",
	}
	msgs := projectGrok(req)

	require.Len(t, msgs, 4)
	assert.Equal(t, grokMessage{Role: "system", Content: "be terse"}, msgs[0])

	assert.Equal(t, "user", msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "=== Notes [p1] ===\nremember"))
	assert.Contains(t, msgs[1].Content, "[m1]: find x")

	assistant := msgs[2]
	require.Len(t, assistant.ToolCalls, 1)
	tc := assistant.ToolCalls[0]
	assert.Equal(t, "tu_1", tc.ID)
	assert.Equal(t, "function", tc.Type)
	assert.Equal(t, "grep", tc.Function.Name)
	assert.JSONEq(t, `{"pattern":"x"}`, tc.Function.Arguments)

	tool := msgs[3]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "tu_1", tool.ToolCallID)
	assert.Equal(t, "[m3]: 3 matches", tool.Content)
}

func TestProjectGrokDanglingCallOmitted(t *testing.T) {
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "grep", Input: map[string]any{}}},
	}
	msgs := projectGrok(Request{
		Messages:     []*state.Message{textMsg("m1", "user", "q"), call},
		SystemPrompt: "sys",
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
}

func TestProjectGrokResultBeforeCallOmitted(t *testing.T) {
	result := &state.Message{
		ID: "m1", Role: "user", Type: state.MessageToolResult,
		ToolResults: []state.ToolResult{{ToolUseID: "tu_1", Content: "stale"}},
	}
	call := &state.Message{
		ID: "m2", Role: "assistant", Type: state.MessageToolCall,
		ToolUses: []state.ToolUse{{ID: "tu_1", Name: "grep", Input: map[string]any{}}},
	}
	msgs := projectGrok(Request{Messages: []*state.Message{result, call}})

	for _, msg := range msgs {
		assert.Empty(t, msg.ToolCalls)
	}
}

func TestProjectGrokContextNeedsOpeningUserMessage(t *testing.T) {
	req := Request{
		Messages: []*state.Message{
			textMsg("m1", "assistant", "unprompted"),
			textMsg("m2", "user", "hello"),
		},
		ContextItems: []state.ContextItem{{ID: "p1", Header: "Notes", Content: "remember"}},
		SystemPrompt: "sys",
	}
	msgs := projectGrok(req)

	require.Len(t, msgs, 3)
	assert.Equal(t, "[m1]: unprompted", msgs[1].Content)
	assert.Equal(t, "[m2]: hello", msgs[2].Content)
}
