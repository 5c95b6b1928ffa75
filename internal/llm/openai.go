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
	"sort"
	"strings"
	"time"
)

// GrokClient streams completions through the x.ai OpenAI-compatible
// chat completions endpoint, authenticated with XAI_API_KEY.
type GrokClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewGrokClient(logger *slog.Logger) *GrokClient {
	return &GrokClient{
		apiKey:   os.Getenv("XAI_API_KEY"),
		endpoint: grokEndpoint,
		http:     &http.Client{Timeout: 10 * time.Minute},
		logger:   logger,
	}
}

// Wire shapes for the chat completions endpoint.

type grokRequest struct {
	Model      string        `json:"model"`
	MaxTokens  int           `json:"max_tokens"`
	Messages   []grokMessage `json:"messages"`
	Tools      []grokTool    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
	Stream     bool          `json:"stream,omitempty"`
}

type grokMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []grokToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type grokToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function grokFunctionCall `json:"function"`
}

type grokFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type grokTool struct {
	Type     string       `json:"type"`
	Function grokFunction `json:"function"`
}

type grokFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type grokStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
	} `json:"usage"`
}

// Stream implements Client.
func (c *GrokClient) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	if c.apiKey == "" {
		return fmt.Errorf("grok auth: XAI_API_KEY is not set")
	}

	apiReq := grokRequest{
		Model:     req.Model,
		MaxTokens: maxResponseTokens,
		Messages:  projectGrok(req),
		Tools:     grokTools(req.Tools),
		Stream:    true,
	}
	if len(apiReq.Tools) > 0 {
		apiReq.ToolChoice = "auto"
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("grok stream start", "model", apiReq.Model, "messages", len(apiReq.Messages), "tools", len(apiReq.Tools))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	return decodeGrok(resp.Body, sendFunc(ctx, events))
}

// grokToolSlot accumulates one tool call keyed by its delta index. The
// id and name arrive on the first frame; arguments may be spread over
// any number of later frames carrying only the index.
type grokToolSlot struct {
	id   string
	name string
	args strings.Builder
}

// decodeGrok folds the chat-completions SSE dialect into the
// normalized event sequence. Tool calls accumulate per index and flush
// in index order when a finish_reason arrives; slots never flushed by
// stream end are dropped. Malformed chunk JSON is skipped.
func decodeGrok(r io.Reader, emit func(StreamEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	slots := map[int]*grokToolSlot{}
	promptTokens, completionTokens := 0, 0

	flush := func() bool {
		if len(slots) == 0 {
			return true
		}
		indexes := make([]int, 0, len(slots))
		for i := range slots {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		for _, i := range indexes {
			slot := slots[i]
			if slot.id == "" || slot.name == "" {
				continue
			}
			use := ToolUse{}
			use.ID, use.Name, use.Input = slot.id, slot.name, parseToolInput(slot.args.String())
			if !emit(use) {
				return false
			}
		}
		slots = map[int]*grokToolSlot{}
		return true
	}

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

		var chunk grokStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			if chunk.Usage.PromptTokens != nil {
				promptTokens = *chunk.Usage.PromptTokens
			}
			if chunk.Usage.CompletionTokens != nil {
				completionTokens = *chunk.Usage.CompletionTokens
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" && !emit(Chunk{Text: choice.Delta.Content}) {
			return nil
		}
		for _, tc := range choice.Delta.ToolCalls {
			slot, ok := slots[tc.Index]
			if !ok {
				slot = &grokToolSlot{}
				slots[tc.Index] = slot
			}
			if tc.ID != "" {
				slot.id = tc.ID
			}
			if tc.Function.Name != "" {
				slot.name = tc.Function.Name
			}
			slot.args.WriteString(tc.Function.Arguments)
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			if !flush() {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	emit(Done{InputTokens: promptTokens, OutputTokens: completionTokens})
	return nil
}

// CheckAPI runs the same three probes as the Anthropic client, against
// the chat completions surface.
func (c *GrokClient) CheckAPI(ctx context.Context, model string) CheckResult {
	if c.apiKey == "" {
		return CheckResult{Err: fmt.Errorf("XAI_API_KEY is not set")}
	}

	probe := func(body map[string]any) bool {
		data, err := json.Marshal(body)
		if err != nil {
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
		if err != nil {
			return false
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
		"model":      model,
		"max_tokens": 10,
		"messages":   []map[string]any{{"role": "user", "content": "Hi"}},
	})
	if !result.AuthOK {
		result.Err = fmt.Errorf("auth probe failed for model %s", model)
		return result
	}

	result.StreamingOK = probe(map[string]any{
		"model":      model,
		"max_tokens": 10,
		"stream":     true,
		"messages":   []map[string]any{{"role": "user", "content": "Say ok"}},
	})
	result.ToolsOK = probe(map[string]any{
		"model":      model,
		"max_tokens": 50,
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        "test_tool",
				"description": "A test tool",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
					"required":   []string{},
				},
			},
		}},
		"messages": []map[string]any{{"role": "user", "content": "Hi"}},
	})
	return result
}
