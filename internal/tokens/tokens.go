// Package tokens provides a cheap token-cost approximation for LLM content.
package tokens

// charsPerToken is the average byte-per-token ratio used for estimation.
// All context sources and messages are costed with the same ratio so the
// totals shown in the sidebar stay comparable.
const charsPerToken = 4

// Estimate returns an approximate LLM token count for s, rounding the
// byte length to the nearest multiple of the chars-per-token ratio.
// It is deterministic: the same string always yields the same estimate.
func Estimate(s string) int {
	return (len(s) + charsPerToken/2) / charsPerToken
}
