package state

// MessageType distinguishes what a conversation entry carries.
type MessageType int

const (
	MessageText MessageType = iota
	MessageToolCall
	MessageToolResult
)

// MessageStatus is the lifecycle of an entry in the log. Summarized
// entries keep their full content but project only their summary;
// deleted entries stay in the log for display but never reach a
// provider.
type MessageStatus int

const (
	StatusFull MessageStatus = iota
	StatusSummarized
	StatusDeleted
)

// ToolUse is a structured tool invocation requested by the model.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the correlated outcome of one tool invocation.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Message is one turn or sub-turn in the conversation log. The log is
// append-only from the streaming side; status changes come from the
// interactive loop.
type Message struct {
	ID      string
	Role    string // "user" or "assistant"
	Type    MessageType
	Status  MessageStatus
	Content string
	Summary string

	ToolUses    []ToolUse
	ToolResults []ToolResult
}

// Empty reports whether the message carries nothing a provider could
// use. Empty messages are skipped during projection.
func (m *Message) Empty() bool {
	return m.Content == "" && len(m.ToolUses) == 0 && len(m.ToolResults) == 0
}

// EffectiveContent is the text to project: the summary when the
// message has been summarized and one exists, the full content
// otherwise.
func (m *Message) EffectiveContent() string {
	if m.Status == StatusSummarized && m.Summary != "" {
		return m.Summary
	}
	return m.Content
}
