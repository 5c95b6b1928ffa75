package tools

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultTreeFilter is the exclusion list applied to fresh tree sources.
const DefaultTreeFilter = ".git,node_modules,target,vendor,__pycache__"

// TreeDescription attaches a short annotation to one path in the tree
// listing. Descriptions travel with the refresh request so the
// background worker needs no access to mutable state.
type TreeDescription struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Tree renders a directory listing rooted at base. filter is a
// comma-separated set of name globs to exclude. Folders are expanded
// only when listed in openFolders (slash-separated paths relative to
// base); collapsed folders are shown with a marker so the model knows
// it can open them. Descriptions are appended to their paths.
func Tree(base, filter string, openFolders []string, descriptions []TreeDescription) string {
	if base == "" {
		base = "."
	}

	excludes := splitFilter(filter)
	open := make(map[string]bool, len(openFolders))
	for _, f := range openFolders {
		open[filepath.ToSlash(f)] = true
	}
	descs := make(map[string]string, len(descriptions))
	for _, d := range descriptions {
		descs[filepath.ToSlash(d.Path)] = d.Description
	}

	var b strings.Builder
	b.WriteString("./\n")
	writeTreeLevel(&b, base, "", 1, excludes, open, descs)
	return strings.TrimRight(b.String(), "\n")
}

func writeTreeLevel(b *strings.Builder, base, rel string, depth int, excludes []string, open map[string]bool, descs map[string]string) {
	entries, err := os.ReadDir(filepath.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		return
	}

	// Directories first, then files, each alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		name := e.Name()
		if excluded(name, excludes) {
			continue
		}
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		if e.IsDir() {
			if open[childRel] {
				b.WriteString(indent + name + "/\n")
				writeTreeLevel(b, base, childRel, depth+1, excludes, open, descs)
			} else {
				b.WriteString(indent + "▸ " + name + "/\n")
			}
			continue
		}

		line := indent + name
		if d := descs[childRel]; d != "" {
			line += "  (" + d + ")"
		}
		b.WriteString(line + "\n")
	}
}

func splitFilter(filter string) []string {
	var out []string
	for _, part := range strings.Split(filter, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func excluded(name string, excludes []string) bool {
	for _, pat := range excludes {
		if pat == name {
			return true
		}
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}
