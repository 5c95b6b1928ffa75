package tools

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const globMaxResults = 500

// Glob walks base and returns the formatted list of paths matching
// pattern, plus the match count. Patterns use shell glob syntax with
// "**" crossing directory boundaries, e.g. "**/*.go" or "src/**/test_*".
// Hidden directories like .git are never descended into.
func Glob(pattern, base string) (string, int) {
	if base == "" {
		base = "."
	}

	re, err := compileGlob(pattern)
	if err != nil {
		return "Invalid glob pattern: " + pattern, 0
	}

	var matches []string
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name(), path, base) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if re.MatchString(rel) {
			matches = append(matches, rel)
		}
		if len(matches) >= globMaxResults {
			return filepath.SkipAll
		}
		return nil
	})

	sort.Strings(matches)

	if len(matches) == 0 {
		return "No files match pattern: " + pattern, 0
	}

	var b strings.Builder
	b.WriteString("Files matching ")
	b.WriteString(pattern)
	b.WriteString(":\n")
	for _, m := range matches {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), len(matches)
}

// skipDir reports whether a directory should be excluded from walks.
// The walk root itself is never skipped even when hidden (".").
func skipDir(name, path, base string) bool {
	if path == base {
		return false
	}
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	switch name {
	case "node_modules", "target", "vendor", "__pycache__":
		return true
	}
	return false
}

// compileGlob translates a glob pattern into an anchored regexp.
// "**" matches any number of path segments, "*" matches within one
// segment, "?" matches a single character.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// Collapse "**/" so it also matches zero segments.
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString(`(?:[^/]+/)*`)
					i += 2
				} else {
					b.WriteString(`.*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		case '.', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
