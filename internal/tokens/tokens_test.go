package tokens

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "single char", input: "a", want: 0},
		{name: "two chars rounds up", input: "ab", want: 1},
		{name: "exactly four", input: "abcd", want: 1},
		{name: "hello", input: "hello", want: 1},
		{name: "six chars", input: "hello!", want: 2},
		{name: "eight chars", input: "12345678", want: 2},
		{name: "multibyte counts bytes", input: "héllo", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.input); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	input := "the same string estimated twice"
	if Estimate(input) != Estimate(input) {
		t.Error("estimate should be stable for identical input")
	}
}
