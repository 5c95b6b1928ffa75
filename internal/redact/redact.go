// Package redact scans outgoing context for credentials so the user is
// warned before a file or pane capture leaks a secret to a provider.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a detected secret.
type Kind string

const (
	KindAPIKey      Kind = "api_key"
	KindAWSKey      Kind = "aws_key"
	KindPrivateKey  Kind = "private_key"
	KindBearerToken Kind = "bearer_token"
	KindPassword    Kind = "password"
	KindDatabaseURL Kind = "database_url"
)

// Finding is one detected secret.
type Finding struct {
	Kind  Kind
	Value string
	Line  int
}

var patterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindAWSKey, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{KindPrivateKey, regexp.MustCompile(`-----BEGIN (?:RSA|DSA|EC|PGP|OPENSSH) PRIVATE KEY-----`)},
	{KindAPIKey, regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|secret[_-]?key|access[_-]?token)['"]?\s*[:=]\s*['"]?[A-Za-z0-9\-_.]{20,}`)},
	{KindBearerToken, regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.]{30,}`)},
	{KindPassword, regexp.MustCompile(`(?i)(?:password|passwd|pwd)['"]?\s*[:=]\s*['"]?[^\s'"]{6,}`)},
	{KindDatabaseURL, regexp.MustCompile(`(?i)(?:postgres|mysql|mongodb|redis)://[^\s]*:[^\s]*@`)},
}

// Scan reports every secret-shaped value in text, line by line.
func Scan(text string) []Finding {
	var findings []Finding
	for lineNum, line := range strings.Split(text, "\n") {
		for _, p := range patterns {
			for _, value := range p.re.FindAllString(line, -1) {
				findings = append(findings, Finding{
					Kind:  p.kind,
					Value: value,
					Line:  lineNum + 1,
				})
			}
		}
	}
	return findings
}

// Mask shortens a secret for display: a short prefix and the length.
func Mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "…" + fmt.Sprintf("(%d chars)", len(value))
}

// Summarize renders findings for a status line, e.g.
// "api_key ×2, private_key".
func Summarize(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}
	counts := map[Kind]int{}
	order := []Kind{}
	for _, f := range findings {
		if counts[f.Kind] == 0 {
			order = append(order, f.Kind)
		}
		counts[f.Kind]++
	}
	parts := make([]string, 0, len(order))
	for _, kind := range order {
		if n := counts[kind]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s ×%d", kind, n))
		} else {
			parts = append(parts, string(kind))
		}
	}
	return strings.Join(parts, ", ")
}
