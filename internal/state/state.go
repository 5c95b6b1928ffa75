package state

import (
	"fmt"
	"time"

	"github.com/bigmoostache/context-pilot/internal/cache"
	"github.com/bigmoostache/context-pilot/internal/tokens"
)

// Deprecation intervals: how long cached content stays trusted before
// the next tick schedules a refresh.
const (
	SearchDeprecation = 30 * time.Second // glob and grep
	TmuxDeprecation   = time.Second
)

// State is the single-writer application state: the context-source
// table and the conversation log. Only the interactive loop mutates it.
type State struct {
	Sources  []*ContextSource
	Messages []*Message

	nextContext int
	nextMessage int

	tmuxTTL   time.Duration
	searchTTL time.Duration
}

// New returns an empty state.
func New() *State {
	return &State{
		tmuxTTL:   TmuxDeprecation,
		searchTTL: SearchDeprecation,
	}
}

// SetRefreshTTLs overrides the tmux and search deprecation intervals.
// Non-positive values keep the defaults.
func (s *State) SetRefreshTTLs(tmux, search time.Duration) {
	if tmux > 0 {
		s.tmuxTTL = tmux
	}
	if search > 0 {
		s.searchTTL = search
	}
}

// AddSource registers a source, assigns it the next "p<n>" id and marks
// it deprecated so the first poll refreshes it.
func (s *State) AddSource(src *ContextSource) *ContextSource {
	s.nextContext++
	src.ID = fmt.Sprintf("p%d", s.nextContext)
	src.Deprecated = true
	s.Sources = append(s.Sources, src)
	return src
}

// RemoveSource drops the source with the given id. In-flight refreshes
// for it become no-ops: Apply re-validates by id.
func (s *State) RemoveSource(id string) {
	for i, src := range s.Sources {
		if src.ID == id {
			s.Sources = append(s.Sources[:i], s.Sources[i+1:]...)
			return
		}
	}
}

// FindSource resolves a source by id, nil when gone.
func (s *State) FindSource(id string) *ContextSource {
	for _, src := range s.Sources {
		if src.ID == id {
			return src
		}
	}
	return nil
}

// AppendMessage adds a conversation entry and assigns it the next
// "m<n>" id.
func (s *State) AppendMessage(m *Message) *Message {
	s.nextMessage++
	m.ID = fmt.Sprintf("m%d", s.nextMessage)
	s.Messages = append(s.Messages, m)
	return m
}

// Apply folds one background update into the table. The source is
// re-validated by id (it may have been closed while the refresh ran)
// and updates older than the last applied sequence for that source are
// dropped, so a slow superseded refresh can never clobber fresher
// content. Content, fingerprint and token count change together.
func (s *State) Apply(u cache.Update) bool {
	src := s.FindSource(u.Context())
	if src == nil {
		return false
	}
	if u.Sequence() <= src.appliedSeq {
		return false
	}

	switch v := u.(type) {
	case cache.FileContent:
		src.Content, src.Hash, src.TokenCount = v.Content, v.Hash, v.TokenCount
	case cache.TreeContent:
		src.Content, src.TokenCount = v.Content, v.TokenCount
	case cache.GlobContent:
		src.Content, src.TokenCount = v.Content, v.TokenCount
	case cache.GrepContent:
		src.Content, src.TokenCount = v.Content, v.TokenCount
	case cache.TmuxContent:
		src.Content, src.TailHash, src.TokenCount = v.Content, v.TailHash, v.TokenCount
	default:
		return false
	}

	src.HasContent = true
	src.Deprecated = false
	src.LastRefresh = time.Now()
	src.appliedSeq = u.Sequence()
	return true
}

// DeprecateStale flags sources whose cached content has outlived its
// deprecation interval. Tmux panes go stale quickly; glob and grep
// results last longer. Files are flagged by the fs watcher instead, and
// tree sources on explicit structural changes.
func (s *State) DeprecateStale(now time.Time) {
	for _, src := range s.Sources {
		if src.Deprecated {
			continue
		}
		var ttl time.Duration
		switch src.Type {
		case ContextTmux:
			ttl = s.tmuxTTL
		case ContextGlob, ContextGrep:
			ttl = s.searchTTL
		default:
			continue
		}
		if now.Sub(src.LastRefresh) >= ttl {
			src.Deprecated = true
		}
	}
}

// DeprecatePath flags every file source backed by the given path. The
// fs watcher calls this instead of a timer: file content only goes
// stale when the file actually changed.
func (s *State) DeprecatePath(path string) {
	for _, src := range s.Sources {
		if src.Type == ContextFile && src.Path == path {
			src.Deprecated = true
		}
	}
}

// LastAssistant returns the newest non-deleted assistant message, nil
// when there is none.
func (s *State) LastAssistant() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == "assistant" && m.Status != StatusDeleted {
			return m
		}
	}
	return nil
}

// PendingRequests returns refresh requests for every deprecated source
// that has one.
func (s *State) PendingRequests() []cache.Request {
	var reqs []cache.Request
	for _, src := range s.Sources {
		if !src.Deprecated {
			continue
		}
		if req, ok := src.RefreshRequest(); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// ContextItems renders every source in table order.
func (s *State) ContextItems() []ContextItem {
	items := make([]ContextItem, 0, len(s.Sources))
	for _, src := range s.Sources {
		items = append(items, src.Item())
	}
	return items
}

// TotalTokens is the summed token cost of all cached source content
// plus every non-deleted message.
func (s *State) TotalTokens() int {
	total := 0
	for _, src := range s.Sources {
		if src.Type == ContextNotes {
			total += tokens.Estimate(src.Note)
			continue
		}
		total += src.TokenCount
	}
	for _, m := range s.Messages {
		if m.Status == StatusDeleted {
			continue
		}
		total += tokens.Estimate(m.EffectiveContent())
	}
	return total
}
