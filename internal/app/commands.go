package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bigmoostache/context-pilot/internal/cache"
	"github.com/bigmoostache/context-pilot/internal/gitstatus"
	"github.com/bigmoostache/context-pilot/internal/llm"
	"github.com/bigmoostache/context-pilot/internal/watcher"
)

// Message types for tea.Cmd
type (
	// TaggedTickMsg is a tick with an identifying tag.
	TaggedTickMsg struct {
		Time time.Time
		Tag  string
	}

	// CacheUpdateMsg carries one background refresh result.
	CacheUpdateMsg struct {
		Update cache.Update
	}

	// FileChangedMsg reports a watched file changed on disk.
	FileChangedMsg struct {
		Path string
	}

	// GitSummaryMsg carries one repository status snapshot.
	GitSummaryMsg struct {
		Summary gitstatus.Summary
		OK      bool
	}

	// StreamEventMsg carries one normalized event from the in-flight
	// completion stream.
	StreamEventMsg struct {
		Event llm.StreamEvent
	}

	// StreamFinishedMsg closes the in-flight stream. Err is nil on
	// clean completion and on user cancellation.
	StreamFinishedMsg struct {
		Err error
	}

	// CheckResultMsg reports a connectivity check.
	CheckResultMsg struct {
		Provider string
		Model    string
		Result   llm.CheckResult
	}

	// ErrorMsg represents an error condition.
	ErrorMsg struct {
		Err error
	}
)

// Tick tags.
const (
	tickRefresh = "refresh"
	tickGit     = "git"
)

// Tick returns a tick command with a tag so one Update loop can run
// several cadences.
func Tick(d time.Duration, tag string) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TaggedTickMsg{Time: t, Tag: tag}
	})
}

// waitForUpdate blocks on the dispatcher's channel and surfaces the
// next refresh result as a tea.Msg. Returns nil when the channel
// closes.
func waitForUpdate(updates <-chan cache.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return CacheUpdateMsg{Update: u}
	}
}

// waitForFileChange surfaces the next watcher event.
func waitForFileChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-w.Events()
		if !ok {
			return nil
		}
		return FileChangedMsg{Path: path}
	}
}

// waitForStreamEvent surfaces the next completion event. The stream
// goroutine closes events when Stream returns; the error (if any)
// arrives on errs right before that.
func waitForStreamEvent(events <-chan llm.StreamEvent, errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamFinishedMsg{Err: <-errs}
		}
		return StreamEventMsg{Event: ev}
	}
}

// pollGit runs one git status snapshot off the Update loop.
func pollGit(workDir string) tea.Cmd {
	return func() tea.Msg {
		summary, err := gitstatus.Poll(workDir)
		return GitSummaryMsg{Summary: summary, OK: err == nil}
	}
}

// startStream launches the provider call in its own goroutine and
// returns the command that waits for its first event. The events
// channel is closed after Stream returns so the drain loop always
// terminates.
func startStream(ctx context.Context, client llm.Client, req llm.Request) (tea.Cmd, <-chan llm.StreamEvent, <-chan error) {
	events := make(chan llm.StreamEvent, 32)
	errs := make(chan error, 1)

	go func() {
		err := client.Stream(ctx, req, events)
		if ctx.Err() != nil {
			err = nil // user cancellation is not a failure
		}
		errs <- err
		close(events)
	}()

	return waitForStreamEvent(events, errs), events, errs
}

// runCheck probes a provider's connectivity off the Update loop.
func runCheck(client llm.Client, provider, model string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return CheckResultMsg{
			Provider: provider,
			Model:    model,
			Result:   client.CheckAPI(ctx, model),
		}
	}
}
