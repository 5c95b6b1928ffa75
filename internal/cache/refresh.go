package cache

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bigmoostache/context-pilot/internal/tokens"
	"github.com/bigmoostache/context-pilot/internal/tools"
)

// tmuxTailLines is how many trailing lines of a pane capture feed the
// change-detection fingerprint.
const tmuxTailLines = 2

// capturePane invokes tmux. Indirection so tests can substitute pane
// output without a tmux server.
var capturePane = func(paneID string) (string, error) {
	out, err := exec.Command("tmux", "capture-pane", "-p", "-t", paneID).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// refreshFile reads the file whole and emits only when the content
// fingerprint moved. A missing or unreadable file emits nothing: the
// file may be mid-save, and the next poll will retry.
func refreshFile(req RefreshFile, seq uint64) (Update, bool) {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, false
	}

	content := string(data)
	hash := HashContent(content)
	if req.CurrentHash == hash {
		return nil, false
	}

	return FileContent{
		ContextID:  req.ContextID,
		Content:    content,
		Hash:       hash,
		TokenCount: tokens.Estimate(content),
		Seq:        seq,
	}, true
}

// refreshTree always emits: listing generation is cheap and the
// attached descriptions can change independent of file content.
func refreshTree(req RefreshTree, seq uint64, workDir string) (Update, bool) {
	content := tools.Tree(workDir, req.Filter, req.OpenFolders, req.Descriptions)
	return TreeContent{
		ContextID:  req.ContextID,
		Content:    content,
		TokenCount: tokens.Estimate(content),
		Seq:        seq,
	}, true
}

// refreshGlob always emits, including the "no matches" rendering.
func refreshGlob(req RefreshGlob, seq uint64, workDir string) (Update, bool) {
	base := req.BasePath
	if base == "" {
		base = workDir
	} else if !filepath.IsAbs(base) {
		base = filepath.Join(workDir, base)
	}

	content, _ := tools.Glob(req.Pattern, base)
	return GlobContent{
		ContextID:  req.ContextID,
		Content:    content,
		TokenCount: tokens.Estimate(content),
		Seq:        seq,
	}, true
}

// refreshGrep always emits, including the "no matches" rendering.
func refreshGrep(req RefreshGrep, seq uint64, workDir string) (Update, bool) {
	path := req.Path
	if path == "" {
		path = workDir
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	content, _ := tools.Grep(req.Pattern, path, req.FilePattern)
	return GrepContent{
		ContextID:  req.ContextID,
		Content:    content,
		TokenCount: tokens.Estimate(content),
		Seq:        seq,
	}, true
}

// refreshTmux captures the pane and emits only when the tail
// fingerprint moved. A dead pane or missing tmux binary emits nothing.
func refreshTmux(req RefreshTmux, seq uint64) (Update, bool) {
	content, err := capturePane(req.PaneID)
	if err != nil {
		return nil, false
	}

	tailHash := HashLastLines(content, tmuxTailLines)
	if req.CurrentTailHash == tailHash {
		return nil, false
	}

	return TmuxContent{
		ContextID:  req.ContextID,
		Content:    content,
		TailHash:   tailHash,
		TokenCount: tokens.Estimate(content),
		Seq:        seq,
	}, true
}
