package utilization

import "fmt"

// Category is the utilization band of one antigen at one place and period.
type Category string

const (
	Unacceptable   Category = "Unacceptable"
	Acceptable     Category = "Acceptable"
	LowUtilization Category = "Low Utilization"
)

// Categories lists the bands in reporting order.
var Categories = []Category{Unacceptable, Acceptable, LowUtilization}

// Bounds are the band limits of an antigen as fractions of the distributed doses.
type Bounds struct {
	Unacceptable float64 `json:"unacceptable" toml:"unacceptable"`
	Acceptable   float64 `json:"acceptable" toml:"acceptable"`
}

// Validate checks that the acceptable floor does not exceed the unacceptable ceiling.
func (b Bounds) Validate() error {
	if b.Acceptable < 0 || b.Unacceptable < 0 {
		return fmt.Errorf("bounds must not be negative: %+v", b)
	}
	if b.Acceptable > b.Unacceptable {
		return fmt.Errorf("acceptable %.2f is above unacceptable %.2f", b.Acceptable, b.Unacceptable)
	}
	return nil
}

// Label describes the band with its limits, e.g. "Acceptable (65-100%)".
func (b Bounds) Label(c Category) string {
	switch c {
	case Unacceptable:
		return fmt.Sprintf("Unacceptable (>%.0f%%)", b.Unacceptable*100)
	case Acceptable:
		return fmt.Sprintf("Acceptable (%.0f-%.0f%%)", b.Acceptable*100, b.Unacceptable*100)
	default:
		return fmt.Sprintf("Low Utilization (<%.0f%%)", b.Acceptable*100)
	}
}

// Lookup maps antigen names to their bounds, with a fallback for unlisted antigens.
type Lookup struct {
	Antigens map[string]Bounds `json:"antigens" toml:"antigens"`
	Default  Bounds            `json:"default" toml:"default"`
}

// DefaultLookup returns the national bounds per antigen.
func DefaultLookup() Lookup {
	return Lookup{
		Antigens: map[string]Bounds{
			"BCG":     {Unacceptable: 1.00, Acceptable: 0.50},
			"IPV":     {Unacceptable: 1.00, Acceptable: 0.90},
			"Measles": {Unacceptable: 1.00, Acceptable: 0.65},
			"Penta":   {Unacceptable: 1.00, Acceptable: 0.95},
			"Rota":    {Unacceptable: 1.00, Acceptable: 0.90},
		},
		Default: Bounds{Unacceptable: 1.00, Acceptable: 0.80},
	}
}

// For returns the bounds of an antigen. Names are matched exactly.
func (l Lookup) For(antigen string) Bounds {
	if b, ok := l.Antigens[antigen]; ok {
		return b
	}
	return l.Default
}

// Validate checks every entry.
func (l Lookup) Validate() error {
	if err := l.Default.Validate(); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for name, b := range l.Antigens {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Categorize places a utilization rate, given in percent, into a band.
func Categorize(ratePercent float64, b Bounds) Category {
	rate := ratePercent / 100
	switch {
	case rate > b.Unacceptable:
		return Unacceptable
	case rate >= b.Acceptable:
		return Acceptable
	default:
		return LowUtilization
	}
}
