package gitstatus

import "os/exec"

// gitReadOnly creates an exec.Cmd for a read-only git operation that
// won't acquire optional locks, so a background poll never races a
// stage or commit the user runs in another pane for .git/index.lock.
//
// Uses the --no-optional-locks flag (git 2.15+).
func gitReadOnly(args ...string) *exec.Cmd {
	return exec.Command("git", append([]string{"--no-optional-locks"}, args...)...)
}
