package gitstatus

import (
	"errors"
	"testing"
)

func TestParsePorcelain(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want Summary
	}{
		{
			name: "clean tracking branch",
			out:  "## main...origin/main\n",
			want: Summary{Branch: "main"},
		},
		{
			name: "diverged with changes",
			out: "## main...origin/main [ahead 2, behind 1]\n" +
				"M  staged.go\n" +
				" M edited.go\n" +
				"MM both.go\n" +
				"?? new.txt\n",
			want: Summary{Branch: "main", Ahead: 2, Behind: 1, Staged: 2, Modified: 2, Untracked: 1},
		},
		{
			name: "ahead only",
			out:  "## feature/x...origin/feature/x [ahead 3]\n",
			want: Summary{Branch: "feature/x", Ahead: 3},
		},
		{
			name: "no upstream",
			out:  "## local-only\nA  added.go\n",
			want: Summary{Branch: "local-only", Staged: 1},
		},
		{
			name: "detached head",
			out:  "## HEAD (no branch)\n",
			want: Summary{Branch: "HEAD"},
		},
		{
			name: "unborn branch",
			out:  "## No commits yet on main\n?? a.go\n",
			want: Summary{Branch: "main", Untracked: 1},
		},
		{
			name: "empty output",
			out:  "",
			want: Summary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePorcelain(tt.out)
			if got != tt.want {
				t.Errorf("parsePorcelain() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPoll_UsesGitStatus(t *testing.T) {
	orig := runGit
	defer func() { runGit = orig }()

	var gotArgs []string
	runGit = func(workDir string, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte("## main...origin/main [ahead 1]\n M a.go\n"), nil
	}

	s, err := Poll("/repo")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if s.Branch != "main" || s.Ahead != 1 || s.Modified != 1 {
		t.Errorf("Poll() = %+v", s)
	}
	if len(gotArgs) != 3 || gotArgs[0] != "status" || gotArgs[1] != "--porcelain=v1" || gotArgs[2] != "-b" {
		t.Errorf("unexpected git args: %v", gotArgs)
	}
}

func TestPoll_NoRepo(t *testing.T) {
	orig := runGit
	defer func() { runGit = orig }()

	runGit = func(workDir string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 128")
	}

	if _, err := Poll("/not-a-repo"); err == nil {
		t.Fatal("expected an error outside a repository")
	}
}

func TestSummaryString(t *testing.T) {
	tests := []struct {
		s    Summary
		want string
	}{
		{Summary{}, ""},
		{Summary{Branch: "main"}, "main"},
		{Summary{Branch: "main", Ahead: 1, Behind: 2}, "main ↑1 ↓2"},
		{Summary{Branch: "dev", Staged: 3, Modified: 1, Untracked: 2}, "dev +3 ~1 ?2"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
