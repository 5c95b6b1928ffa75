// Package state owns the conversation log and the context-source table.
// Both are mutated only by the interactive loop; background workers and
// the streaming client read snapshots and communicate results back over
// channels. That single-writer discipline is what lets the table go
// unlocked.
package state

import (
	"fmt"
	"time"

	"github.com/bigmoostache/context-pilot/internal/cache"
	"github.com/bigmoostache/context-pilot/internal/tools"
)

// ContextType identifies what kind of live source a context entry is.
type ContextType int

const (
	ContextFile ContextType = iota
	ContextTree
	ContextGlob
	ContextGrep
	ContextTmux
	ContextNotes
)

// String returns the sidebar label for the type.
func (t ContextType) String() string {
	switch t {
	case ContextFile:
		return "file"
	case ContextTree:
		return "tree"
	case ContextGlob:
		return "glob"
	case ContextGrep:
		return "grep"
	case ContextTmux:
		return "tmux"
	case ContextNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// ContextSource is one addressable, cacheable unit of context. Content,
// fingerprint and token cost are always written together by Apply, so a
// reader never sees a cost computed from different content than what it
// displays.
type ContextSource struct {
	ID   string
	Type ContextType

	// Kind-specific locators.
	Path         string // file
	Filter       string // tree
	OpenFolders  []string
	Descriptions []tools.TreeDescription
	Pattern      string // glob, grep
	BasePath     string // glob
	FilePattern  string // grep
	PaneID       string // tmux
	PaneNote     string // tmux, short description
	Note         string // notes, the content itself

	Content     string
	HasContent  bool
	Hash        string // whole-content fingerprint (file)
	TailHash    string // last-lines fingerprint (tmux)
	TokenCount  int
	Deprecated  bool
	LastRefresh time.Time

	appliedSeq uint64
}

// Title is the short sidebar heading for the source.
func (s *ContextSource) Title() string {
	switch s.Type {
	case ContextFile:
		return s.Path
	case ContextTree:
		return "project tree"
	case ContextGlob:
		return "glob " + s.Pattern
	case ContextGrep:
		return "grep " + s.Pattern
	case ContextTmux:
		return "tmux " + s.PaneID
	case ContextNotes:
		return "notes"
	}
	return s.ID
}

// Item renders the source as a context item for the prompt. Sources
// never refreshed render empty content and are dropped by the
// projector's non-empty filter.
func (s *ContextSource) Item() ContextItem {
	var header, content string
	switch s.Type {
	case ContextFile:
		header = "File: " + s.Path
	case ContextTree:
		header = "Project Tree"
	case ContextGlob:
		header = "Glob: " + s.Pattern
	case ContextGrep:
		header = "Grep: " + s.Pattern
	case ContextTmux:
		if s.PaneNote != "" {
			header = fmt.Sprintf("Tmux Pane %s (%s)", s.PaneID, s.PaneNote)
		} else {
			header = "Tmux Pane " + s.PaneID
		}
	case ContextNotes:
		header = "Notes"
	}

	if s.Type == ContextNotes {
		content = s.Note
	} else if s.HasContent {
		content = s.Content
	}
	return ContextItem{ID: s.ID, Header: header, Content: content}
}

// RefreshRequest builds the background request that recomputes this
// source. The request copies every locator it needs so the worker holds
// no reference into the live table. Notes sources are static and return
// ok=false.
func (s *ContextSource) RefreshRequest() (cache.Request, bool) {
	switch s.Type {
	case ContextFile:
		return cache.RefreshFile{ContextID: s.ID, Path: s.Path, CurrentHash: s.Hash}, true
	case ContextTree:
		return cache.RefreshTree{
			ContextID:    s.ID,
			Filter:       s.Filter,
			OpenFolders:  append([]string(nil), s.OpenFolders...),
			Descriptions: append([]tools.TreeDescription(nil), s.Descriptions...),
		}, true
	case ContextGlob:
		return cache.RefreshGlob{ContextID: s.ID, Pattern: s.Pattern, BasePath: s.BasePath}, true
	case ContextGrep:
		return cache.RefreshGrep{ContextID: s.ID, Pattern: s.Pattern, Path: s.BasePath, FilePattern: s.FilePattern}, true
	case ContextTmux:
		return cache.RefreshTmux{ContextID: s.ID, PaneID: s.PaneID, CurrentTailHash: s.TailHash}, true
	}
	return nil, false
}

// ContextItem is one formatted block of context text for the prompt.
type ContextItem struct {
	ID      string
	Header  string
	Content string
}

// Format renders the item the way it appears inside the first user
// message of a provider request.
func (i ContextItem) Format() string {
	return fmt.Sprintf("=== %s [%s] ===\n%s", i.Header, i.ID, i.Content)
}
