package llm

import (
	"encoding/json"
	"strings"

	"github.com/bigmoostache/context-pilot/internal/state"
)

// cleanupInstruction opens the extra user message of a cleanup turn.
const cleanupInstruction = "Please clean up the context below. Summarize or drop whatever is no longer needed and keep only what the conversation still depends on:"

// tagged prefixes projected text with the message id so the model can
// address individual entries when asked to clean up the context.
func tagged(id, text string) string {
	return "[" + id + "]: " + text
}

// formatContextItems renders the non-empty items, blank-line separated,
// for injection ahead of the first projected text.
func formatContextItems(items []state.ContextItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Content == "" {
			continue
		}
		parts = append(parts, item.Format())
	}
	return strings.Join(parts, "\n\n")
}

// answeredLater reports whether any of the given tool uses has a
// matching result after position idx in the log, or pending on this
// request. A result that precedes its call does not count: the
// projected call must always be followed by its result, or the API
// rejects the turn. Calls without a later result are dangling and must
// not be projected.
func answeredLater(req Request, idx int, uses []state.ToolUse) bool {
	ids := map[string]bool{}
	for _, tu := range uses {
		ids[tu.ID] = true
	}
	for _, m := range req.Messages[idx+1:] {
		if m.Status == state.StatusDeleted {
			continue
		}
		for _, tr := range m.ToolResults {
			if ids[tr.ToolUseID] {
				return true
			}
		}
	}
	for _, tr := range req.ToolResults {
		if ids[tr.ToolUseID] {
			return true
		}
	}
	return false
}

// rawToolInput serializes a tool input map, degrading nil to an empty
// object so the wire never carries null input.
func rawToolInput(in map[string]any) json.RawMessage {
	if in == nil {
		in = map[string]any{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func cleanupMessage(extra string) string {
	return cleanupInstruction + "\n\n" + extra
}

// projectAnthropic renders the conversation into the messages-endpoint
// shape. Consecutive blocks of the same role merge into one message so
// the strict user/assistant alternation holds.
func projectAnthropic(req Request) []anthropicMessage {
	contextPrefix := formatContextItems(req.ContextItems)

	var msgs []anthropicMessage
	appendBlock := func(role string, block contentBlock) {
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, block)
			return
		}
		msgs = append(msgs, anthropicMessage{Role: role, Content: []contentBlock{block}})
	}
	appendText := func(role, id, text string) {
		rendered := tagged(id, text)
		// Context rides on the opening user message only. When the
		// conversation opens with anything else there is no slot for it.
		if contextPrefix != "" && role == "user" && len(msgs) == 0 {
			rendered = contextPrefix + "\n\n" + rendered
		}
		contextPrefix = ""
		appendBlock(role, contentBlock{Type: "text", Text: rendered})
	}

	for i, m := range req.Messages {
		if m.Status == state.StatusDeleted || m.Empty() {
			continue
		}
		switch {
		case len(m.ToolResults) > 0:
			for _, tr := range m.ToolResults {
				appendBlock("user", contentBlock{
					Type:      "tool_result",
					ToolUseID: tr.ToolUseID,
					Content:   tagged(m.ID, tr.Content),
				})
			}
		case len(m.ToolUses) > 0:
			if !answeredLater(req, i, m.ToolUses) {
				continue
			}
			if text := m.EffectiveContent(); text != "" {
				appendText("assistant", m.ID, text)
			}
			for _, tu := range m.ToolUses {
				appendBlock("assistant", contentBlock{
					Type:  "tool_use",
					ID:    tu.ID,
					Name:  tu.Name,
					Input: rawToolInput(tu.Input),
				})
			}
		default:
			text := m.EffectiveContent()
			if text == "" {
				continue
			}
			appendText(m.Role, m.ID, text)
		}
	}

	for _, tr := range req.ToolResults {
		appendBlock("user", contentBlock{
			Type:      "tool_result",
			ToolUseID: tr.ToolUseID,
			Content:   tr.Content,
		})
	}

	if req.ExtraContext != "" {
		appendBlock("user", contentBlock{Type: "text", Text: cleanupMessage(req.ExtraContext)})
	}
	return msgs
}

// projectGrok renders the conversation into the chat-completions shape:
// a leading system message, tool results as role "tool" messages and
// tool calls re-serialized onto assistant messages.
func projectGrok(req Request) []grokMessage {
	contextPrefix := formatContextItems(req.ContextItems)

	var msgs []grokMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, grokMessage{Role: "system", Content: req.SystemPrompt})
	}
	base := len(msgs)
	renderText := func(role, id, text string) string {
		rendered := tagged(id, text)
		// Same rule as the other dialect: context only decorates the
		// opening user message, after the system prompt.
		if contextPrefix != "" && role == "user" && len(msgs) == base {
			rendered = contextPrefix + "\n\n" + rendered
		}
		contextPrefix = ""
		return rendered
	}

	for i, m := range req.Messages {
		if m.Status == state.StatusDeleted || m.Empty() {
			continue
		}
		switch {
		case len(m.ToolResults) > 0:
			for _, tr := range m.ToolResults {
				msgs = append(msgs, grokMessage{
					Role:       "tool",
					ToolCallID: tr.ToolUseID,
					Content:    tagged(m.ID, tr.Content),
				})
			}
		case len(m.ToolUses) > 0:
			if !answeredLater(req, i, m.ToolUses) {
				continue
			}
			msg := grokMessage{Role: "assistant"}
			if text := m.EffectiveContent(); text != "" {
				msg.Content = renderText("assistant", m.ID, text)
			}
			for _, tu := range m.ToolUses {
				msg.ToolCalls = append(msg.ToolCalls, grokToolCall{
					ID:   tu.ID,
					Type: "function",
					Function: grokFunctionCall{
						Name:      tu.Name,
						Arguments: string(rawToolInput(tu.Input)),
					},
				})
			}
			msgs = append(msgs, msg)
		default:
			text := m.EffectiveContent()
			if text == "" {
				continue
			}
			msgs = append(msgs, grokMessage{Role: m.Role, Content: renderText(m.Role, m.ID, text)})
		}
	}

	for _, tr := range req.ToolResults {
		msgs = append(msgs, grokMessage{
			Role:       "tool",
			ToolCallID: tr.ToolUseID,
			Content:    tr.Content,
		})
	}

	if req.ExtraContext != "" {
		msgs = append(msgs, grokMessage{Role: "user", Content: cleanupMessage(req.ExtraContext)})
	}
	return msgs
}

func anthropicTools(defs []ToolDefinition) []anthropicTool {
	tools := make([]anthropicTool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, anthropicTool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return tools
}

func grokTools(defs []ToolDefinition) []grokTool {
	tools := make([]grokTool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, grokTool{
			Type: "function",
			Function: grokFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return tools
}
