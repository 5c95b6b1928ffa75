package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashContent fingerprints content for change detection. The result is
// a 64-bit xxhash formatted as 16 lowercase hex characters, stable
// across runs for identical input. It is not a cryptographic digest.
func HashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// HashLastLines fingerprints only the trailing n lines of content.
// Terminal scrollback grows without bound and is mostly static, so
// hashing just the tail keeps idle panes cheap to poll while still
// catching new output. Buffers shorter than n lines hash whole.
func HashLastLines(content string, n int) string {
	// A trailing newline would otherwise count as an empty final line
	// and shift the window off the real tail.
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return HashContent(strings.Join(lines, "\n"))
}
