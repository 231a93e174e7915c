package normalize

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber converts a metric cell to float64. Surrounding whitespace and
// thousands separators are ignored. NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}
