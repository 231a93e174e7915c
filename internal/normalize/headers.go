package normalize

import "strings"

// CleanHeader tidies a column header read from a source file: surrounding
// whitespace is trimmed, non-breaking spaces become plain spaces, and the
// "Received" wording used by some stock reports is renamed to "Distributed".
func CleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, "\u00a0", " ")
	h = strings.ReplaceAll(h, "Received", "Distributed")
	return h
}

// CleanHeaders applies CleanHeader to every header.
func CleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = CleanHeader(h)
	}
	return out
}
