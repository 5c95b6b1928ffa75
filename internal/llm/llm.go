// Package llm normalizes provider-specific token streams into one
// internal event vocabulary. Each provider client opens a single
// streaming connection, decodes its own wire dialect and emits Chunk,
// ToolUse and Done events; provider wire types never escape their
// decoder. The rest of the application is written purely against the
// Client interface and the StreamEvent variants.
package llm

import (
	"context"
	"fmt"

	"github.com/bigmoostache/context-pilot/internal/state"
)

const (
	// maxResponseTokens caps every completion request.
	maxResponseTokens = 4096

	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	oauthBetaHeader   = "oauth-2025-04-20"

	// grokEndpoint is OpenAI-compatible chat completions.
	grokEndpoint = "https://api.x.ai/v1/chat/completions"
)

// StreamEvent is the normalized output of any provider stream.
type StreamEvent interface {
	isStreamEvent()
}

// Chunk is one incremental fragment of assistant text.
type Chunk struct {
	Text string
}

// ToolUse is a completed structured tool invocation, reassembled from
// however many partial frames the provider split it across.
type ToolUse struct {
	state.ToolUse
}

// Done terminates a stream, carrying the usage figures latched from
// the provider's side-channel fields (zero when none were supplied).
type Done struct {
	InputTokens  int
	OutputTokens int
}

func (Chunk) isStreamEvent()   {}
func (ToolUse) isStreamEvent() {}
func (Done) isStreamEvent()    {}

// ToolDefinition describes one tool offered to the model. InputSchema
// is a JSON-schema object in map form.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request bundles everything a provider needs to run one turn. The
// slices are read-only snapshots owned by the caller.
type Request struct {
	Messages     []*state.Message
	ContextItems []state.ContextItem
	Tools        []ToolDefinition

	// ToolResults carries outcomes for the tool calls of the last
	// assistant message, starting the follow-up turn.
	ToolResults []state.ToolResult

	Model        string
	SystemPrompt string
	// ExtraContext, when set, switches the turn into cleanup mode: the
	// text is appended as a final user message asking the model to
	// shrink the context.
	ExtraContext string
}

// CheckResult reports the three independent connectivity probes.
type CheckResult struct {
	AuthOK      bool
	StreamingOK bool
	ToolsOK     bool
	Err         error
}

// Client is the capability every provider integration implements.
// Stream blocks its goroutine until the provider completes or the
// connection errors; it pushes events in arrival order and exactly one
// Done on clean completion. Cancelling ctx closes the connection and
// stops delivery; a partially accumulated tool call at that point is
// discarded. CheckAPI diagnoses configuration problems without
// touching conversation state.
type Client interface {
	Stream(ctx context.Context, req Request, events chan<- StreamEvent) error
	CheckAPI(ctx context.Context, model string) CheckResult
}

// apiError is a non-2xx response from a provider. It always aborts the
// turn; lower-level decode problems are absorbed inside the decoders.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.status, e.body)
}
