package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// oauthModelAliases remaps current model names to the nearest ids the
// restricted OAuth surface accepts; it does not support the 4.x line.
var oauthModelAliases = map[string]string{
	"claude-opus-4-5":          "claude-3-5-sonnet-20241022",
	"claude-opus-4-5-latest":   "claude-3-5-sonnet-20241022",
	"claude-sonnet-4-5":        "claude-3-5-sonnet-20241022",
	"claude-sonnet-4-5-latest": "claude-3-5-sonnet-20241022",
	"claude-haiku-4-5":         "claude-3-5-haiku-20241022",
	"claude-haiku-4-5-latest":  "claude-3-5-haiku-20241022",
}

func mapModelForOAuth(model string) string {
	if mapped, ok := oauthModelAliases[model]; ok {
		return mapped
	}
	return model
}

// AnthropicClient streams completions through the Anthropic messages
// endpoint using the OAuth token written by the Claude CLI.
type AnthropicClient struct {
	token    string
	tokenErr error
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewAnthropicClient loads credentials eagerly so a missing or expired
// token surfaces on the first turn with an actionable message.
func NewAnthropicClient(logger *slog.Logger) *AnthropicClient {
	home, _ := os.UserHomeDir()
	token, err := loadOAuthToken(home, time.Now())
	if err != nil {
		logger.Debug("anthropic credentials unavailable", "error", err)
	}
	return &AnthropicClient{
		token:    token,
		tokenErr: err,
		endpoint: anthropicEndpoint,
		http:     &http.Client{Timeout: 10 * time.Minute},
		logger:   logger,
	}
}

// Wire shapes for the messages endpoint.

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is one element of a message's content array: a text,
// tool_use or tool_result block depending on Type. Input stays raw so
// an empty object survives serialization.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicStreamEvent struct {
	Type         string `json:"type"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Usage *struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
	} `json:"usage"`
}

// Stream implements Client.
func (c *AnthropicClient) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	if c.token == "" {
		if c.tokenErr != nil {
			return fmt.Errorf("anthropic auth: %w", c.tokenErr)
		}
		return fmt.Errorf("anthropic auth: no OAuth token; run 'claude login'")
	}

	apiReq := anthropicRequest{
		Model:     mapModelForOAuth(req.Model),
		MaxTokens: maxResponseTokens,
		System:    req.SystemPrompt,
		Messages:  projectAnthropic(req),
		Tools:     anthropicTools(req.Tools),
		Stream:    true,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("anthropic-beta", oauthBetaHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("anthropic stream start", "model", apiReq.Model, "messages", len(apiReq.Messages), "tools", len(apiReq.Tools))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	return decodeAnthropic(resp.Body, sendFunc(ctx, events))
}

// sendFunc adapts the events channel into the emit callback the
// decoders use; it reports false once the context is cancelled so the
// decode loop unwinds without draining the rest of the connection.
func sendFunc(ctx context.Context, events chan<- StreamEvent) func(StreamEvent) bool {
	return func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

// decodeAnthropic folds the messages-endpoint SSE dialect into the
// normalized event sequence. At most one tool-use block is open at a
// time: a new content_block_start supersedes any previous accumulator,
// and an accumulator still open at stream end is dropped without
// emitting. Malformed event JSON is skipped; the stream keeps going.
func decodeAnthropic(r io.Reader, emit func(StreamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tool *toolAccumulator
	inputTokens, outputTokens := 0, 0

scan:
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimSpace(line[len("data: "):])
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_start":
			if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
				tool = &toolAccumulator{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
			}
		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" && !emit(Chunk{Text: ev.Delta.Text}) {
					return nil
				}
			case "input_json_delta":
				if tool != nil {
					tool.args.WriteString(ev.Delta.PartialJSON)
				}
			}
		case "content_block_stop":
			if tool != nil {
				use := tool.finish()
				tool = nil
				if !emit(use) {
					return nil
				}
			}
		case "message_delta":
			if ev.Usage != nil {
				if ev.Usage.InputTokens != nil {
					inputTokens = *ev.Usage.InputTokens
				}
				if ev.Usage.OutputTokens != nil {
					outputTokens = *ev.Usage.OutputTokens
				}
			}
		case "message_stop":
			break scan
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	emit(Done{InputTokens: inputTokens, OutputTokens: outputTokens})
	return nil
}

// CheckAPI runs three probes against the live endpoint: plain
// completion, streaming completion and tool-enabled completion.
func (c *AnthropicClient) CheckAPI(ctx context.Context, model string) CheckResult {
	if c.token == "" {
		err := c.tokenErr
		if err == nil {
			err = fmt.Errorf("no OAuth token")
		}
		return CheckResult{Err: err}
	}

	mapped := mapModelForOAuth(model)

	probe := func(body map[string]any) bool {
		data, err := json.Marshal(body)
		if err != nil {
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
		if err != nil {
			return false
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("anthropic-version", anthropicVersion)
		req.Header.Set("anthropic-beta", oauthBetaHeader)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}

	result := CheckResult{}
	result.AuthOK = probe(map[string]any{
		"model":      mapped,
		"max_tokens": 10,
		"messages":   []map[string]any{{"role": "user", "content": "Hi"}},
	})
	if !result.AuthOK {
		result.Err = fmt.Errorf("auth probe failed for model %s", mapped)
		return result
	}

	result.StreamingOK = probe(map[string]any{
		"model":      mapped,
		"max_tokens": 10,
		"stream":     true,
		"messages":   []map[string]any{{"role": "user", "content": "Say ok"}},
	})
	result.ToolsOK = probe(map[string]any{
		"model":      mapped,
		"max_tokens": 50,
		"tools": []map[string]any{{
			"name":        "test_tool",
			"description": "A test tool",
			"input_schema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		}},
		"messages": []map[string]any{{"role": "user", "content": "Hi"}},
	})
	return result
}

// toolAccumulator gathers the partial-JSON frames of one tool call.
type toolAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// finish parses the accumulated arguments. Malformed JSON degrades to
// an empty object input; a broken tool call should not kill the turn.
func (t *toolAccumulator) finish() ToolUse {
	input := parseToolInput(t.args.String())
	use := ToolUse{}
	use.ID, use.Name, use.Input = t.id, t.name, input
	return use
}

func parseToolInput(raw string) map[string]any {
	input := map[string]any{}
	if raw == "" {
		return input
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return map[string]any{}
	}
	return input
}
