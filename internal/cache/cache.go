// Package cache keeps context sources fresh without ever blocking the
// interactive loop. Refresh requests are executed on their own
// goroutines and completed updates are delivered over a single channel
// that the UI drains between renders. Workers never touch the source
// table directly; they only post updates, and the consumer re-validates
// each update against the table before applying it.
package cache

import (
	"sync"

	"github.com/bigmoostache/context-pilot/internal/tools"
)

// Request describes one refresh to run in the background. Each variant
// carries everything needed to recompute its content so workers cannot
// race with concurrent mutation of the source table.
type Request interface {
	context() string
}

// RefreshFile re-reads a file. CurrentHash is the last known content
// fingerprint; empty means no fingerprint is known and the refresher
// always emits.
type RefreshFile struct {
	ContextID   string
	Path        string
	CurrentHash string
}

// RefreshTree regenerates the directory listing.
type RefreshTree struct {
	ContextID    string
	Filter       string
	OpenFolders  []string
	Descriptions []tools.TreeDescription
}

// RefreshGlob re-runs a glob pattern against the filesystem.
type RefreshGlob struct {
	ContextID string
	Pattern   string
	BasePath  string
}

// RefreshGrep re-runs a content search against the filesystem.
type RefreshGrep struct {
	ContextID   string
	Pattern     string
	Path        string
	FilePattern string
}

// RefreshTmux re-captures a terminal pane. CurrentTailHash fingerprints
// the last two lines of the previous capture.
type RefreshTmux struct {
	ContextID       string
	PaneID          string
	CurrentTailHash string
}

func (r RefreshFile) context() string { return r.ContextID }
func (r RefreshTree) context() string { return r.ContextID }
func (r RefreshGlob) context() string { return r.ContextID }
func (r RefreshGrep) context() string { return r.ContextID }
func (r RefreshTmux) context() string { return r.ContextID }

// Update is the one-shot result of a completed refresh. It carries no
// claim that the source still exists; the consumer must re-validate by
// context id before applying. Sequence numbers are per-source and
// monotonic in submission order so a slow superseded refresh can never
// overwrite a faster, later-issued one.
type Update interface {
	Context() string
	Sequence() uint64
}

// FileContent is the result of a file refresh.
type FileContent struct {
	ContextID  string
	Content    string
	Hash       string
	TokenCount int
	Seq        uint64
}

// TreeContent is the result of a tree refresh.
type TreeContent struct {
	ContextID  string
	Content    string
	TokenCount int
	Seq        uint64
}

// GlobContent is the result of a glob refresh.
type GlobContent struct {
	ContextID  string
	Content    string
	TokenCount int
	Seq        uint64
}

// GrepContent is the result of a grep refresh.
type GrepContent struct {
	ContextID  string
	Content    string
	TokenCount int
	Seq        uint64
}

// TmuxContent is the result of a pane capture. TailHash fingerprints
// the last two lines only.
type TmuxContent struct {
	ContextID  string
	Content    string
	TailHash   string
	TokenCount int
	Seq        uint64
}

func (u FileContent) Context() string { return u.ContextID }
func (u TreeContent) Context() string { return u.ContextID }
func (u GlobContent) Context() string { return u.ContextID }
func (u GrepContent) Context() string { return u.ContextID }
func (u TmuxContent) Context() string { return u.ContextID }

func (u FileContent) Sequence() uint64 { return u.Seq }
func (u TreeContent) Sequence() uint64 { return u.Seq }
func (u GlobContent) Sequence() uint64 { return u.Seq }
func (u GrepContent) Sequence() uint64 { return u.Seq }
func (u TmuxContent) Sequence() uint64 { return u.Seq }

// Dispatcher runs refresh requests off the interactive thread. One
// goroutine per request, no queue and no back-pressure: simultaneous
// refreshes for many stale sources are all allowed in flight at once,
// and each posts at most one Update back. A refresh that fails, or one
// that detects no change, posts nothing; the source simply stays
// deprecated until a later poll succeeds.
type Dispatcher struct {
	workDir string
	updates chan Update
	done    chan struct{}
	once    sync.Once

	mu   sync.Mutex
	seqs map[string]uint64
}

// NewDispatcher creates a dispatcher whose tree/glob/grep refreshers
// resolve relative paths against workDir.
func NewDispatcher(workDir string) *Dispatcher {
	return &Dispatcher{
		workDir: workDir,
		updates: make(chan Update, 64),
		done:    make(chan struct{}),
		seqs:    make(map[string]uint64),
	}
}

// Updates is the multi-producer, single-consumer delivery channel. The
// interactive loop drains it with non-blocking receives.
func (d *Dispatcher) Updates() <-chan Update { return d.updates }

// Submit schedules one refresh and returns immediately.
func (d *Dispatcher) Submit(req Request) {
	seq := d.nextSeq(req.context())
	go func() {
		if update, ok := d.run(req, seq); ok {
			d.deliver(update)
		}
	}()
}

// Close releases workers still trying to deliver. Updates in flight
// after Close are silently discarded; the application is shutting down
// and nobody is left to apply them.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

func (d *Dispatcher) nextSeq(contextID string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seqs[contextID]++
	return d.seqs[contextID]
}

func (d *Dispatcher) deliver(u Update) {
	select {
	case d.updates <- u:
	case <-d.done:
	}
}

func (d *Dispatcher) run(req Request, seq uint64) (Update, bool) {
	switch r := req.(type) {
	case RefreshFile:
		return refreshFile(r, seq)
	case RefreshTree:
		return refreshTree(r, seq, d.workDir)
	case RefreshGlob:
		return refreshGlob(r, seq, d.workDir)
	case RefreshGrep:
		return refreshGrep(r, seq, d.workDir)
	case RefreshTmux:
		return refreshTmux(r, seq)
	}
	return nil, false
}
