package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapModelForOAuth(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"claude-opus-4-5", "claude-3-5-sonnet-20241022"},
		{"claude-opus-4-5-latest", "claude-3-5-sonnet-20241022"},
		{"claude-sonnet-4-5", "claude-3-5-sonnet-20241022"},
		{"claude-haiku-4-5", "claude-3-5-haiku-20241022"},
		{"claude-haiku-4-5-latest", "claude-3-5-haiku-20241022"},
		{"claude-3-5-sonnet-20241022", "claude-3-5-sonnet-20241022"},
		{"some-other-model", "some-other-model"},
	}
	for _, tt := range tests {
		if got := mapModelForOAuth(tt.in); got != tt.want {
			t.Errorf("mapModelForOAuth(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// collectEvents runs a decoder over the given SSE body and gathers
// everything it emits.
func collectEvents(t *testing.T, decode func(r *strings.Reader, emit func(StreamEvent) bool) error, body string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	err := decode(strings.NewReader(body), func(ev StreamEvent) bool {
		events = append(events, ev)
		return true
	})
	require.NoError(t, err)
	return events
}

func decodeAnthropicBody(t *testing.T, body string) []StreamEvent {
	t.Helper()
	return collectEvents(t, func(r *strings.Reader, emit func(StreamEvent) bool) error {
		return decodeAnthropic(r, emit)
	}, body)
}

func sse(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestDecodeAnthropicText(t *testing.T) {
	body := sse(
		`{"type":"message_start"}`,
		`{"type":"content_block_start","content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_delta","usage":{"input_tokens":12,"output_tokens":3}}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 3)
	assert.Equal(t, Chunk{Text: "Hel"}, events[0])
	assert.Equal(t, Chunk{Text: "lo"}, events[1])
	assert.Equal(t, Done{InputTokens: 12, OutputTokens: 3}, events[2])
}

func TestDecodeAnthropicToolUse(t *testing.T) {
	body := sse(
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_1","name":"read_file"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"\"main.go\"}"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 2)
	use, ok := events[0].(ToolUse)
	require.True(t, ok)
	assert.Equal(t, "tu_1", use.ID)
	assert.Equal(t, "read_file", use.Name)
	assert.Equal(t, map[string]any{"path": "main.go"}, use.Input)
	assert.Equal(t, Done{}, events[1])
}

func TestDecodeAnthropicTextThenToolUse(t *testing.T) {
	// A turn that explains itself before calling a tool: text deltas
	// first, then start, three argument deltas and stop. The chunks come
	// out in order and exactly one ToolUse follows them.
	body := sse(
		`{"type":"message_start"}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Let me "}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"check."}}`,
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_1","name":"search_files"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"pattern\":"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"\"TODO\","}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"\"file_pattern\":\"*.go\"}"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 4)
	assert.Equal(t, Chunk{Text: "Let me "}, events[0])
	assert.Equal(t, Chunk{Text: "check."}, events[1])
	use, ok := events[2].(ToolUse)
	require.True(t, ok)
	assert.Equal(t, "tu_1", use.ID)
	assert.Equal(t, "search_files", use.Name)
	assert.Equal(t, map[string]any{"pattern": "TODO", "file_pattern": "*.go"}, use.Input)
	assert.Equal(t, Done{}, events[3])
}

func TestDecodeAnthropicMalformedToolInput(t *testing.T) {
	body := sse(
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_1","name":"read_file"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"path\": truncated"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 2)
	use := events[0].(ToolUse)
	assert.Equal(t, map[string]any{}, use.Input)
}

func TestDecodeAnthropicUnflushedToolDropped(t *testing.T) {
	// The accumulator never sees content_block_stop, so no ToolUse.
	body := sse(
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_1","name":"read_file"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{}"}}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 1)
	assert.Equal(t, Done{}, events[0])
}

func TestDecodeAnthropicSupersededAccumulator(t *testing.T) {
	// A second tool_use block replaces the first before it closed; only
	// the second one is emitted.
	body := sse(
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_1","name":"first"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"a\":1"}}`,
		`{"type":"content_block_start","content_block":{"type":"tool_use","id":"tu_2","name":"second"}}`,
		`{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"b\":2}"}}`,
		`{"type":"content_block_stop"}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 2)
	use := events[0].(ToolUse)
	assert.Equal(t, "tu_2", use.ID)
	assert.Equal(t, "second", use.Name)
	assert.Equal(t, map[string]any{"b": float64(2)}, use.Input)
}

func TestDecodeAnthropicSkipsGarbage(t *testing.T) {
	body := "event: message_start\n" +
		"data: not json at all\n" +
		sse(
			`{"type":"something_new","payload":true}`,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":"ok"}}`,
		) +
		"data: [DONE]\n"
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 2)
	assert.Equal(t, Chunk{Text: "ok"}, events[0])
	assert.Equal(t, Done{}, events[1])
}

func TestDecodeAnthropicUsageLastValueWins(t *testing.T) {
	body := sse(
		`{"type":"message_delta","usage":{"output_tokens":1}}`,
		`{"type":"message_delta","usage":{"input_tokens":40,"output_tokens":7}}`,
		`{"type":"message_stop"}`,
	)
	events := decodeAnthropicBody(t, body)

	require.Len(t, events, 1)
	assert.Equal(t, Done{InputTokens: 40, OutputTokens: 7}, events[0])
}

func TestDecodeAnthropicStopsWhenEmitRefuses(t *testing.T) {
	body := sse(
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"a"}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"b"}}`,
		`{"type":"message_stop"}`,
	)
	var events []StreamEvent
	err := decodeAnthropic(strings.NewReader(body), func(ev StreamEvent) bool {
		events = append(events, ev)
		return false
	})
	require.NoError(t, err)
	// First emit is refused; decode unwinds without a Done.
	require.Len(t, events, 1)
}
