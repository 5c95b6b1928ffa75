package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveUpdate(t *testing.T, d *Dispatcher) Update {
	t.Helper()
	select {
	case u := <-d.Updates():
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return nil
	}
}

func TestDispatcher_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	d := NewDispatcher(dir)
	defer d.Close()

	d.Submit(RefreshFile{ContextID: "P5", Path: path})

	update := receiveUpdate(t, d)
	fc, ok := update.(FileContent)
	require.True(t, ok, "expected FileContent, got %T", update)
	assert.Equal(t, "P5", fc.ContextID)
	assert.Equal(t, "hello", fc.Content)
	assert.Equal(t, HashContent("hello"), fc.Hash)
	assert.Equal(t, 1, fc.TokenCount)
}

func TestDispatcher_FailedRefreshEmitsNothing(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	defer d.Close()

	d.Submit(RefreshFile{ContextID: "P5", Path: "/nonexistent/nowhere.txt"})

	select {
	case u := <-d.Updates():
		t.Fatalf("unexpected update %#v for failed refresh", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcher_SequencePerSourceMonotonic(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	defer d.Close()

	assert.Equal(t, uint64(1), d.nextSeq("p1"))
	assert.Equal(t, uint64(2), d.nextSeq("p1"))
	assert.Equal(t, uint64(1), d.nextSeq("p2"), "sequences are independent per source")
	assert.Equal(t, uint64(3), d.nextSeq("p1"))
}

func TestDispatcher_CloseDiscardsPendingDeliveries(t *testing.T) {
	d := NewDispatcher(t.TempDir())

	// Fill the channel so further deliveries would block, then close.
	for i := 0; i < cap(d.updates); i++ {
		d.updates <- TreeContent{ContextID: "px"}
	}
	d.Close()

	done := make(chan struct{})
	go func() {
		d.deliver(TreeContent{ContextID: "py"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver should return immediately after Close")
	}
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	d.Close()
	d.Close()
}
