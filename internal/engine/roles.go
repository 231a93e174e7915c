package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/epi-triangulate/internal/table"
)

// Standard column names of the harmonized tables.
const (
	ColPeriod         = "Period"
	ColRegion         = "Region"
	ColZone           = "Zone"
	ColWoreda         = "Woreda"
	ColOriginalWoreda = "Original_Woreda"
)

// KeyColumns is the merge key, in output order.
var KeyColumns = []string{ColPeriod, ColRegion, ColZone, ColWoreda}

// Level is one administrative hierarchy level.
type Level int

const (
	LevelRegion Level = iota
	LevelZone
	LevelWoreda
)

// Levels lists the hierarchy from coarsest to finest.
var Levels = []Level{LevelRegion, LevelZone, LevelWoreda}

func (l Level) String() string {
	switch l {
	case LevelRegion:
		return "region"
	case LevelZone:
		return "zone"
	case LevelWoreda:
		return "woreda"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText lets Level be used as a JSON object key.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses "region", "zone" or "woreda".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region":
		return LevelRegion, nil
	case "zone":
		return LevelZone, nil
	case "woreda":
		return LevelWoreda, nil
	}
	return 0, fmt.Errorf("unknown level %q (want region, zone or woreda)", s)
}

// Roles names the source columns that play each semantic role in one table.
type Roles struct {
	Region  string   `json:"region" toml:"region"`
	Zone    string   `json:"zone" toml:"zone"`
	Woreda  string   `json:"woreda" toml:"woreda"`
	Period  string   `json:"period" toml:"period"`
	Metrics []string `json:"metrics" toml:"metrics"`
}

// StandardRoles are the roles of a table already projected to the harmonized names.
func StandardRoles(metrics []string) Roles {
	return Roles{Region: ColRegion, Zone: ColZone, Woreda: ColWoreda, Period: ColPeriod, Metrics: metrics}
}

// Column returns the column playing the given level's role.
func (r Roles) Column(l Level) string {
	switch l {
	case LevelRegion:
		return r.Region
	case LevelZone:
		return r.Zone
	default:
		return r.Woreda
	}
}

// Thresholds holds the minimum similarity, in percent, accepted at each level.
type Thresholds struct {
	Region float64 `json:"region" toml:"region"`
	Zone   float64 `json:"zone" toml:"zone"`
	Woreda float64 `json:"woreda" toml:"woreda"`
}

// DefaultThresholds returns the thresholds the matching was tuned with:
// region names are few and must agree closely, woreda names vary most.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Region: 90,
		Zone:   85,
		Woreda: 80,
	}
}

// For returns the threshold of a level.
func (t Thresholds) For(l Level) float64 {
	switch l {
	case LevelRegion:
		return t.Region
	case LevelZone:
		return t.Zone
	default:
		return t.Woreda
	}
}

// Validate rejects thresholds outside [0,100].
func (t Thresholds) Validate() error {
	for _, l := range Levels {
		if err := CheckThreshold(l.String()+" threshold", t.For(l)); err != nil {
			return err
		}
	}
	return nil
}

// CheckThreshold rejects a similarity threshold outside [0,100] percent.
func CheckThreshold(role string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return &ConfigurationError{Role: role, Reason: fmt.Sprintf("%v is outside [0,100]", v)}
	}
	return nil
}

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a column-role or threshold selection that cannot be used.
// It is raised before any matching starts.
type ConfigurationError struct {
	Table  string
	Role   string
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Table != "" {
		fmt.Fprintf(&b, " in table %q", e.Table)
	}
	if e.Role != "" {
		fmt.Fprintf(&b, ": %s", e.Role)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

var reservedColumns = map[string]bool{
	ColPeriod:         true,
	ColRegion:         true,
	ColZone:           true,
	ColWoreda:         true,
	ColOriginalWoreda: true,
}

// ValidateRoles checks that every role column exists in t, that no column plays two roles,
// and that the metric selection is usable.
func ValidateRoles(t *table.Table, r Roles) error {
	used := make(map[string]string)
	keyRoles := []struct {
		role   string
		column string
	}{
		{"region", r.Region},
		{"zone", r.Zone},
		{"woreda", r.Woreda},
		{"period", r.Period},
	}

	for _, kr := range keyRoles {
		if kr.column == "" {
			return &ConfigurationError{Table: t.Name, Role: kr.role, Reason: "no column selected"}
		}
		if !t.HasColumn(kr.column) {
			return &ConfigurationError{Table: t.Name, Role: kr.role, Column: kr.column, Reason: "not found"}
		}
		if other, ok := used[kr.column]; ok {
			return &ConfigurationError{Table: t.Name, Role: kr.role, Column: kr.column,
				Reason: fmt.Sprintf("already selected as %s", other)}
		}
		used[kr.column] = kr.role
	}

	if len(r.Metrics) == 0 {
		return &ConfigurationError{Table: t.Name, Role: "metrics", Reason: "select at least one metric column"}
	}
	for _, m := range r.Metrics {
		if !t.HasColumn(m) {
			return &ConfigurationError{Table: t.Name, Role: "metric", Column: m, Reason: "not found"}
		}
		if other, ok := used[m]; ok {
			return &ConfigurationError{Table: t.Name, Role: "metric", Column: m,
				Reason: fmt.Sprintf("already selected as %s", other)}
		}
		if reservedColumns[m] {
			return &ConfigurationError{Table: t.Name, Role: "metric", Column: m,
				Reason: "name is reserved for the merge key"}
		}
		used[m] = "metric"
	}
	return nil
}

// Suggestion is a keyword-based pre-selection of column roles for a table.
type Suggestion struct {
	Roles            Roles    `json:"roles"`
	GeographyColumns []string `json:"geography_columns"`
	PeriodColumns    []string `json:"period_columns"`
}

var (
	geographyKeywords = []string{"region", "zone", "woreda", "city"}
	periodKeywords    = []string{"period", "month", "year", "date"}
)

// SuggestRoles pre-selects roles from column names: the first three geography-like columns
// become region, zone and woreda in that order, the first period-like column becomes the
// period, and every other column is offered as a metric.
func SuggestRoles(columns []string) Suggestion {
	var s Suggestion
	for _, c := range columns {
		lower := strings.ToLower(c)
		if containsAny(lower, geographyKeywords) {
			s.GeographyColumns = append(s.GeographyColumns, c)
		}
		if containsAny(lower, periodKeywords) {
			s.PeriodColumns = append(s.PeriodColumns, c)
		}
	}

	geo := s.GeographyColumns
	if len(geo) > 0 {
		s.Roles.Region = geo[0]
	}
	if len(geo) > 1 {
		s.Roles.Zone = geo[1]
	}
	if len(geo) > 2 {
		s.Roles.Woreda = geo[2]
	}
	if len(s.PeriodColumns) > 0 {
		s.Roles.Period = s.PeriodColumns[0]
	}

	excluded := make(map[string]bool)
	for _, c := range append(append([]string{}, s.GeographyColumns...), s.PeriodColumns...) {
		excluded[c] = true
	}
	for _, c := range columns {
		if !excluded[c] {
			s.Roles.Metrics = append(s.Roles.Metrics, c)
		}
	}
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// standardize projects a table to the harmonized key columns plus its metrics.
func standardize(t *table.Table, r Roles) (*table.Table, error) {
	columns := append([]string{r.Period, r.Region, r.Zone, r.Woreda}, r.Metrics...)
	names := append(append([]string{}, KeyColumns...), r.Metrics...)
	return t.Select(columns, names)
}
