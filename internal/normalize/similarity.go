package normalize

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the sequence similarity of a and b in [0,1]: twice the number of
// characters found in matching blocks (longest common block first, then recursively
// on both sides of it) divided by the combined length.
//
// Characters are runes. Case and whitespace are significant. Two empty strings score 1,
// an empty string against a non-empty one scores 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	// Block discovery depends on argument order; fix it so Ratio(a, b) == Ratio(b, a).
	if b < a {
		a, b = b, a
	}
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// Percent is Ratio scaled to [0,100], the unit thresholds are expressed in.
func Percent(a, b string) float64 {
	return Ratio(a, b) * 100
}

func chars(s string) []string {
	return strings.Split(s, "")
}
