// Package gitstatus polls a lightweight repository summary for the
// sidebar: branch, divergence from upstream and change counts.
package gitstatus

import (
	"fmt"
	"strconv"
	"strings"
)

// Summary is one snapshot of `git status --porcelain=v1 -b`.
type Summary struct {
	Branch    string
	Ahead     int
	Behind    int
	Staged    int
	Modified  int
	Untracked int
}

// runGit is replaced in tests.
var runGit = func(workDir string, args ...string) ([]byte, error) {
	cmd := gitReadOnly(args...)
	cmd.Dir = workDir
	return cmd.Output()
}

// Poll runs one status snapshot. An error usually just means the
// directory is not a repository.
func Poll(workDir string) (Summary, error) {
	out, err := runGit(workDir, "status", "--porcelain=v1", "-b")
	if err != nil {
		return Summary{}, fmt.Errorf("git status: %w", err)
	}
	return parsePorcelain(string(out)), nil
}

// parsePorcelain folds porcelain v1 output into a Summary. The first
// line is the branch header; every other line is one path with the
// two-column XY staging state.
func parsePorcelain(out string) Summary {
	var s Summary
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			parseBranchHeader(line[3:], &s)
			continue
		}
		if len(line) < 2 {
			continue
		}
		x, y := line[0], line[1]
		if x == '?' && y == '?' {
			s.Untracked++
			continue
		}
		if x != ' ' {
			s.Staged++
		}
		if y != ' ' {
			s.Modified++
		}
	}
	return s
}

func parseBranchHeader(header string, s *Summary) {
	// "main...origin/main [ahead 1, behind 2]" or "HEAD (no branch)"
	// or "No commits yet on main".
	if strings.HasPrefix(header, "No commits yet on ") {
		s.Branch = strings.TrimPrefix(header, "No commits yet on ")
		return
	}
	if strings.HasPrefix(header, "HEAD ") {
		s.Branch = "HEAD"
		return
	}

	name := header
	if i := strings.Index(name, "..."); i >= 0 {
		name = name[:i]
	} else if i := strings.Index(name, " ["); i >= 0 {
		name = name[:i]
	}
	s.Branch = name

	if start := strings.Index(header, "["); start >= 0 {
		end := strings.Index(header[start:], "]")
		if end < 0 {
			return
		}
		for _, part := range strings.Split(header[start+1:start+end], ",") {
			fields := strings.Fields(strings.TrimSpace(part))
			if len(fields) != 2 {
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			switch fields[0] {
			case "ahead":
				s.Ahead = n
			case "behind":
				s.Behind = n
			}
		}
	}
}

// String renders the compact sidebar form, e.g. "main ↑1 ↓2 +3 ~1 ?2".
func (s Summary) String() string {
	if s.Branch == "" {
		return ""
	}
	parts := []string{s.Branch}
	if s.Ahead > 0 {
		parts = append(parts, fmt.Sprintf("↑%d", s.Ahead))
	}
	if s.Behind > 0 {
		parts = append(parts, fmt.Sprintf("↓%d", s.Behind))
	}
	if s.Staged > 0 {
		parts = append(parts, fmt.Sprintf("+%d", s.Staged))
	}
	if s.Modified > 0 {
		parts = append(parts, fmt.Sprintf("~%d", s.Modified))
	}
	if s.Untracked > 0 {
		parts = append(parts, fmt.Sprintf("?%d", s.Untracked))
	}
	return strings.Join(parts, " ")
}
