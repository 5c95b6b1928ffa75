// Package app is the interactive loop: a bubbletea model gluing the
// context-source table, the background refresh dispatcher and the
// streaming providers together. The Update method is the single writer
// of all application state.
package app

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/bigmoostache/context-pilot/internal/cache"
	"github.com/bigmoostache/context-pilot/internal/config"
	"github.com/bigmoostache/context-pilot/internal/gitstatus"
	"github.com/bigmoostache/context-pilot/internal/llm"
	"github.com/bigmoostache/context-pilot/internal/redact"
	"github.com/bigmoostache/context-pilot/internal/state"
	"github.com/bigmoostache/context-pilot/internal/watcher"
)

// Model is the application.
type Model struct {
	cfg     *config.Config
	prompts *config.Prompts
	logger  *slog.Logger
	workDir string

	st         *state.State
	dispatcher *cache.Dispatcher
	files      *watcher.Watcher
	clients    map[string]llm.Client
	tools      []llm.ToolDefinition

	input    textarea.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	// In-flight stream.
	streaming    bool
	cancelStream context.CancelFunc
	streamEvents <-chan llm.StreamEvent
	streamErrs   <-chan error
	current      *state.Message
	cleanupTurn  bool

	git   gitstatus.Summary
	gitOK bool

	showConfig bool
	configRow  int

	status    string
	highlight string
	usageIn   int
	usageOut  int

	width  int
	height int
	ready  bool
}

// New wires the application together. The project tree is registered
// as the first context source so a fresh session is immediately
// useful.
func New(cfg *config.Config, prompts *config.Prompts, logger *slog.Logger, workDir string) (*Model, error) {
	files, err := watcher.New()
	if err != nil {
		return nil, err
	}

	input := textarea.New()
	input.Placeholder = "Message, /file <path>, /grep <pattern>, p3 to jump…"
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	st := state.New()
	st.SetRefreshTTLs(time.Duration(cfg.Refresh.TmuxInterval), time.Duration(cfg.Refresh.SearchTTL))
	st.AddSource(&state.ContextSource{Type: state.ContextTree})

	m := &Model{
		cfg:        cfg,
		prompts:    prompts,
		logger:     logger,
		workDir:    workDir,
		st:         st,
		dispatcher: cache.NewDispatcher(workDir),
		files:      files,
		clients: map[string]llm.Client{
			"anthropic": llm.NewAnthropicClient(logger),
			"grok":      llm.NewGrokClient(logger),
		},
		tools: DefaultTools(),
		input: input,
	}
	return m, nil
}

// Close releases background resources.
func (m *Model) Close() {
	if m.cancelStream != nil {
		m.cancelStream()
	}
	m.dispatcher.Close()
	m.files.Stop()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		Tick(time.Second, tickRefresh),
		Tick(time.Duration(m.cfg.Refresh.GitInterval), tickGit),
		waitForUpdate(m.dispatcher.Updates()),
		waitForFileChange(m.files),
		pollGit(m.workDir),
		m.submitPending(),
	)
}

// submitPending hands every due refresh to the dispatcher. Submission
// never blocks, so the Update loop stays responsive no matter how slow
// a source is.
func (m *Model) submitPending() tea.Cmd {
	for _, req := range m.st.PendingRequests() {
		m.dispatcher.Submit(req)
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TaggedTickMsg:
		switch msg.Tag {
		case tickRefresh:
			m.st.DeprecateStale(msg.Time)
			m.submitPending()
			return m, Tick(time.Second, tickRefresh)
		case tickGit:
			return m, tea.Batch(
				pollGit(m.workDir),
				Tick(time.Duration(m.cfg.Refresh.GitInterval), tickGit),
			)
		}
		return m, nil

	case CacheUpdateMsg:
		if m.st.Apply(msg.Update) {
			m.refreshViewport(false)
		}
		return m, waitForUpdate(m.dispatcher.Updates())

	case FileChangedMsg:
		m.st.DeprecatePath(msg.Path)
		m.submitPending()
		return m, waitForFileChange(m.files)

	case GitSummaryMsg:
		m.git, m.gitOK = msg.Summary, msg.OK
		return m, nil

	case StreamEventMsg:
		m.applyStreamEvent(msg.Event)
		return m, waitForStreamEvent(m.streamEvents, m.streamErrs)

	case StreamFinishedMsg:
		return m.finishStream(msg.Err)

	case CheckResultMsg:
		m.status = renderCheckResult(msg)
		return m, nil

	case ErrorMsg:
		m.status = msg.Err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height

	mainWidth := m.width
	if m.cfg.UI.ShowSidebar {
		mainWidth = m.width - sidebarWidth - 1
	}
	if mainWidth < 20 {
		mainWidth = 20
	}
	vpHeight := m.height - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(mainWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(mainWidth-2),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshViewport(false)
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showConfig {
		return m.handleConfigKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit

	case "esc":
		if m.streaming && m.cancelStream != nil {
			m.cancelStream()
			m.status = "stopping…"
		}
		return m, nil

	case "ctrl+h":
		m.showConfig = true
		m.configRow = 0
		return m, nil

	case "ctrl+k":
		if m.streaming {
			return m, nil
		}
		return m, m.startCleanupTurn()

	case "ctrl+y":
		if last := m.st.LastAssistant(); last != nil {
			if err := clipboard.WriteAll(last.Content); err != nil {
				m.status = "clipboard: " + err.Error()
			} else {
				m.status = "copied " + last.ID
			}
		}
		return m, nil

	case "enter":
		line := m.input.Value()
		m.input.Reset()
		return m.dispatch(parseInput(line))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch runs one parsed input action.
func (m *Model) dispatch(action inputAction) (tea.Model, tea.Cmd) {
	switch act := action.(type) {
	case actAddSource:
		src := m.st.AddSource(act.src)
		if src.Type == state.ContextFile {
			if err := m.files.Watch(absPath(m.workDir, src.Path)); err != nil {
				m.logger.Debug("watch failed", "path", src.Path, "error", err)
			}
		}
		m.status = "added " + src.ID + " (" + src.Title() + ")"
		m.submitPending()
		return m, nil

	case actDropSource:
		if src := m.st.FindSource(act.id); src != nil {
			if src.Type == state.ContextFile {
				m.files.Unwatch(absPath(m.workDir, src.Path))
			}
			m.st.RemoveSource(act.id)
			m.status = "dropped " + act.id
		} else {
			m.status = "no source " + act.id
		}
		return m, nil

	case actJump:
		if src := m.st.FindSource(act.id); src != nil {
			m.highlight = act.id
			m.status = act.id + ": " + src.Title()
		} else {
			m.status = "no source " + act.id
		}
		return m, nil

	case actCheck:
		provider := m.cfg.Provider.Default
		return m, runCheck(m.clients[provider], provider, m.cfg.ActiveModel())

	case actChat:
		if m.streaming {
			m.status = "still streaming · Esc to stop"
			return m, nil
		}
		m.st.AppendMessage(&state.Message{Role: "user", Type: state.MessageText, Content: act.text})
		m.refreshViewport(true)
		return m, m.startTurn(llm.Request{})

	case actError:
		if act.msg != "" {
			m.status = act.msg
		}
		return m, nil
	}
	return m, nil
}

// startTurn snapshots the state into a request and launches the
// stream. The base request may carry cleanup-mode fields.
func (m *Model) startTurn(base llm.Request) tea.Cmd {
	provider := m.cfg.Provider.Default
	client, ok := m.clients[provider]
	if !ok {
		m.status = "no client for provider " + provider
		return nil
	}

	req := base
	req.Messages = append([]*state.Message(nil), m.st.Messages...)
	req.ContextItems = m.st.ContextItems()
	req.Tools = m.tools
	req.Model = m.cfg.ActiveModel()
	if req.SystemPrompt == "" {
		req.SystemPrompt = m.prompts.System
	}

	warning := m.scanOutgoing(req)

	ctx, cancel := context.WithCancel(context.Background())
	cmd, events, errs := startStream(ctx, client, req)

	m.streaming = true
	m.cancelStream = cancel
	m.streamEvents = events
	m.streamErrs = errs
	m.current = m.st.AppendMessage(&state.Message{Role: "assistant", Type: state.MessageText})
	m.status = "streaming (" + req.Model + ")…"
	if warning != "" {
		m.status = warning
	}
	m.refreshViewport(true)
	return cmd
}

// scanOutgoing checks the context going to the provider for
// secret-shaped content. Sending proceeds either way; the warning just
// makes the leak visible before it repeats.
func (m *Model) scanOutgoing(req llm.Request) string {
	var all []redact.Finding
	seen := map[string]bool{}
	for _, item := range req.ContextItems {
		findings := redact.Scan(item.Content)
		if len(findings) > 0 {
			seen[item.ID] = true
			all = append(all, findings...)
		}
	}
	if len(all) == 0 {
		return ""
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	m.logger.Warn("secrets in outgoing context", "sources", ids, "findings", len(all))
	return "⚠ possible secrets in " + strings.Join(ids, ",") + ": " + redact.Summarize(all)
}

// startCleanupTurn asks the model to shrink the context, using the
// cleaner system prompt and the rendered context as extra material.
func (m *Model) startCleanupTurn() tea.Cmd {
	items := m.st.ContextItems()
	rendered := make([]string, 0, len(items))
	for _, item := range items {
		if item.Content != "" {
			rendered = append(rendered, item.Format())
		}
	}
	m.cleanupTurn = true
	return m.startTurn(llm.Request{
		SystemPrompt: m.prompts.Cleaner,
		ExtraContext: joinBlocks(rendered),
	})
}

// applyStreamEvent folds one normalized event into the assistant
// message being built.
func (m *Model) applyStreamEvent(ev llm.StreamEvent) {
	if m.current == nil {
		return
	}
	switch ev := ev.(type) {
	case llm.Chunk:
		m.current.Content += ev.Text
		m.refreshViewport(true)
	case llm.ToolUse:
		m.current.Type = state.MessageToolCall
		m.current.ToolUses = append(m.current.ToolUses, ev.ToolUse)
		m.refreshViewport(true)
	case llm.Done:
		m.usageIn, m.usageOut = ev.InputTokens, ev.OutputTokens
	}
}

// finishStream closes out the turn. Completed tool calls are executed
// locally, their results appended to the log, and a follow-up turn
// started so the model sees them.
func (m *Model) finishStream(err error) (tea.Model, tea.Cmd) {
	m.streaming = false
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
	current := m.current
	m.current = nil
	cleanup := m.cleanupTurn
	m.cleanupTurn = false

	if err != nil {
		m.status = "turn failed: " + err.Error()
		m.logger.Error("stream failed", "error", err)
		if current != nil && current.Empty() {
			current.Status = state.StatusDeleted
		}
		m.refreshViewport(true)
		return m, nil
	}
	m.status = ""
	m.refreshViewport(true)

	if current == nil || len(current.ToolUses) == 0 || cleanup {
		return m, nil
	}

	// Tool execution is local and fast; running it here keeps every
	// state mutation on the Update goroutine.
	results := make([]state.ToolResult, 0, len(current.ToolUses))
	for _, use := range current.ToolUses {
		results = append(results, m.runTool(use))
	}
	m.st.AppendMessage(&state.Message{
		Role:        "user",
		Type:        state.MessageToolResult,
		ToolResults: results,
	})
	m.refreshViewport(true)
	return m, m.startTurn(llm.Request{})
}

func renderCheckResult(msg CheckResultMsg) string {
	if msg.Result.Err != nil {
		return msg.Provider + " check failed: " + msg.Result.Err.Error()
	}
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}
	return msg.Provider + "/" + msg.Model +
		" auth " + mark(msg.Result.AuthOK) +
		", streaming " + mark(msg.Result.StreamingOK) +
		", tools " + mark(msg.Result.ToolsOK)
}
