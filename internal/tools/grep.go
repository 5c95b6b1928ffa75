package tools

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	grepMaxMatches     = 200              // total matches across all files
	grepMaxPerFile     = 50               // matches within one file
	grepMaxFileSize    = 1 << 20          // skip files larger than 1MB
	grepMaxLineDisplay = 200              // truncate very long matched lines
)

// Grep scans searchPath for lines matching the regular expression
// pattern and returns formatted "path:line: text" results plus the
// match count. filePattern, when non-empty, is a glob applied to base
// names ("*.go"). A pattern that fails to compile or a search that
// finds nothing both produce descriptive content rather than an error:
// the refresh pipeline treats any produced content as cacheable.
func Grep(pattern, searchPath, filePattern string) (string, int) {
	if searchPath == "" {
		searchPath = "."
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "Invalid regex pattern: " + pattern, 0
	}

	var b strings.Builder
	total := 0

	_ = filepath.WalkDir(searchPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name(), p, searchPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if filePattern != "" {
			if ok, _ := path.Match(filePattern, d.Name()); !ok {
				return nil
			}
		}
		if info, err := d.Info(); err != nil || info.Size() > grepMaxFileSize {
			return nil
		}

		rel, err := filepath.Rel(searchPath, p)
		if err != nil {
			rel = p
		}
		total += grepFile(&b, re, p, filepath.ToSlash(rel), grepMaxMatches-total)
		if total >= grepMaxMatches {
			return filepath.SkipAll
		}
		return nil
	})

	if total == 0 {
		return "No matches for pattern: " + pattern, 0
	}

	header := fmt.Sprintf("Found %d matches for %s:\n", total, pattern)
	return header + strings.TrimRight(b.String(), "\n"), total
}

// truncateAtRune cuts s to at most max bytes, backing up so the cut
// never lands inside a UTF-8 sequence.
func truncateAtRune(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// grepFile appends up to limit matches from one file and returns how
// many were written. Binary files (NUL in the first block) are skipped.
func grepFile(b *strings.Builder, re *regexp.Regexp, fullPath, displayPath string, limit int) int {
	f, err := os.Open(fullPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	probe := make([]byte, 512)
	n, _ := f.Read(probe)
	if bytes.IndexByte(probe[:n], 0) >= 0 {
		return 0
	}
	if _, err := f.Seek(0, 0); err != nil {
		return 0
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	written := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		text := strings.TrimSpace(line)
		if len(text) > grepMaxLineDisplay {
			text = truncateAtRune(text, grepMaxLineDisplay)
		}
		fmt.Fprintf(b, "%s:%d: %s\n", displayPath, lineNo, text)
		written++
		if written >= grepMaxPerFile || written >= limit {
			break
		}
	}
	return written
}
