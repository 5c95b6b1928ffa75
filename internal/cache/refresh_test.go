package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRefreshFile_EmitsWithoutKnownHash(t *testing.T) {
	path := writeTemp(t, "hello")

	update, ok := refreshFile(RefreshFile{ContextID: "P5", Path: path}, 1)
	require.True(t, ok, "no known fingerprint must always emit")

	fc, ok := update.(FileContent)
	require.True(t, ok)
	assert.Equal(t, "P5", fc.ContextID)
	assert.Equal(t, "hello", fc.Content)
	assert.Equal(t, HashContent("hello"), fc.Hash)
	assert.Equal(t, 1, fc.TokenCount)
	assert.Equal(t, uint64(1), fc.Seq)
}

func TestRefreshFile_SuppressesUnchanged(t *testing.T) {
	path := writeTemp(t, "hello")

	_, ok := refreshFile(RefreshFile{
		ContextID:   "P5",
		Path:        path,
		CurrentHash: HashContent("hello"),
	}, 2)
	assert.False(t, ok, "matching fingerprint must not emit")
}

func TestRefreshFile_EmitsOnChange(t *testing.T) {
	path := writeTemp(t, "hello world")

	update, ok := refreshFile(RefreshFile{
		ContextID:   "P5",
		Path:        path,
		CurrentHash: HashContent("stale content"),
	}, 3)
	require.True(t, ok)
	assert.Equal(t, "hello world", update.(FileContent).Content)
}

func TestRefreshFile_MissingFileEmitsNothing(t *testing.T) {
	_, ok := refreshFile(RefreshFile{
		ContextID: "P5",
		Path:      filepath.Join(t.TempDir(), "gone.txt"),
	}, 1)
	assert.False(t, ok, "transient I/O failure must be silent")
}

func TestRefreshTmux_TailChangeDetection(t *testing.T) {
	defer func(orig func(string) (string, error)) { capturePane = orig }(capturePane)

	capture := "scrollback line\nprompt $\nready\n"
	capturePane = func(paneID string) (string, error) {
		assert.Equal(t, "%3", paneID)
		return capture, nil
	}

	update, ok := refreshTmux(RefreshTmux{ContextID: "p2", PaneID: "%3"}, 1)
	require.True(t, ok)
	tc := update.(TmuxContent)
	assert.Equal(t, HashLastLines(capture, 2), tc.TailHash)
	assert.Equal(t, capture, tc.Content)

	// Identical tail behind fresh scrollback: no update.
	capture = "totally new history\nmore history\nprompt $\nready\n"
	_, ok = refreshTmux(RefreshTmux{ContextID: "p2", PaneID: "%3", CurrentTailHash: tc.TailHash}, 2)
	assert.False(t, ok, "scrollback growth alone must not trigger an update")

	// New tail line: update.
	capture = "prompt $\nready\n$ make test\n"
	update, ok = refreshTmux(RefreshTmux{ContextID: "p2", PaneID: "%3", CurrentTailHash: tc.TailHash}, 3)
	require.True(t, ok)
	assert.NotEqual(t, tc.TailHash, update.(TmuxContent).TailHash)
}

func TestRefreshTmux_CaptureFailureEmitsNothing(t *testing.T) {
	defer func(orig func(string) (string, error)) { capturePane = orig }(capturePane)
	capturePane = func(string) (string, error) { return "", errors.New("no server running") }

	_, ok := refreshTmux(RefreshTmux{ContextID: "p2", PaneID: "%0"}, 1)
	assert.False(t, ok)
}

func TestRefreshTreeGlobGrep_AlwaysEmit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	if _, ok := refreshTree(RefreshTree{ContextID: "p1"}, 1, dir); !ok {
		t.Error("tree refresh must always emit")
	}
	if _, ok := refreshGlob(RefreshGlob{ContextID: "p2", Pattern: "*.go"}, 1, dir); !ok {
		t.Error("glob refresh must always emit")
	}
	// Even a search with zero matches emits its formatted empty result.
	update, ok := refreshGrep(RefreshGrep{ContextID: "p3", Pattern: "nothing_here"}, 1, dir)
	require.True(t, ok, "grep refresh must always emit")
	assert.Contains(t, update.(GrepContent).Content, "No matches")
}
