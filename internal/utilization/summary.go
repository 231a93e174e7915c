package utilization

import "sort"

// Filter selects records. Empty fields and "All" match everything.
type Filter struct {
	Period  string `json:"period"`
	Region  string `json:"region"`
	Zone    string `json:"zone"`
	Antigen string `json:"antigen"`
}

func matches(want, got string) bool {
	return want == "" || want == "All" || want == got
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	return matches(f.Period, r.Period) &&
		matches(f.Region, r.Region) &&
		matches(f.Zone, r.Zone) &&
		matches(f.Antigen, r.Antigen)
}

// Apply returns the records passing the filter.
func (f Filter) Apply(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// CategoryCount is the share of records in one band.
type CategoryCount struct {
	Category   Category `json:"category"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// Summary aggregates filtered records.
type Summary struct {
	Records           int             `json:"records"`
	TotalDistributed  float64         `json:"total_distributed"`
	TotalAdministered float64         `json:"total_administered"`
	OverallRate       float64         `json:"overall_rate"`
	Categories        []CategoryCount `json:"categories"`
}

// Summarize totals the records passing f and counts them per band. Every band is listed,
// in the order of Categories, even when empty.
func Summarize(records []Record, f Filter) Summary {
	selected := f.Apply(records)
	s := Summary{Records: len(selected)}

	counts := make(map[Category]int)
	for _, r := range selected {
		s.TotalDistributed += r.Distributed
		s.TotalAdministered += r.Administered
		counts[r.Category]++
	}
	s.OverallRate = Rate(s.TotalDistributed, s.TotalAdministered)

	for _, c := range Categories {
		cc := CategoryCount{Category: c, Count: counts[c]}
		if s.Records > 0 {
			cc.Percentage = round2(100 * float64(cc.Count) / float64(s.Records))
		}
		s.Categories = append(s.Categories, cc)
	}
	return s
}

// AntigenRate is the pooled utilization of one antigen.
type AntigenRate struct {
	Antigen      string  `json:"antigen"`
	Distributed  float64 `json:"distributed"`
	Administered float64 `json:"administered"`
	Rate         float64 `json:"rate"`
}

// AntigenRates pools the records passing f per antigen, sorted by antigen name.
func AntigenRates(records []Record, f Filter) []AntigenRate {
	byAntigen := make(map[string]*AntigenRate)
	for _, r := range f.Apply(records) {
		ar, ok := byAntigen[r.Antigen]
		if !ok {
			ar = &AntigenRate{Antigen: r.Antigen}
			byAntigen[r.Antigen] = ar
		}
		ar.Distributed += r.Distributed
		ar.Administered += r.Administered
	}

	out := make([]AntigenRate, 0, len(byAntigen))
	for _, ar := range byAntigen {
		ar.Rate = Rate(ar.Distributed, ar.Administered)
		out = append(out, *ar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Antigen < out[j].Antigen })
	return out
}

// Periods returns the distinct periods of the records, latest first.
func Periods(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Period] {
			seen[r.Period] = true
			out = append(out, r.Period)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
