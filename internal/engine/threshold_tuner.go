package engine

import (
	"context"
	"sort"
)

// SweepPoint is the outcome of resolving one level at one threshold.
type SweepPoint struct {
	Threshold float64 `json:"threshold"`
	Mapped    int     `json:"mapped"`
	Unmatched int     `json:"unmatched"`
	// Rate is the fraction of source names that were mapped.
	Rate float64 `json:"rate"`
}

// DefaultSweep returns the thresholds 50, 55, ... 100.
func DefaultSweep() []float64 {
	var out []float64
	for t := 50.0; t <= 100; t += 5 {
		out = append(out, t)
	}
	return out
}

// TuneThresholds resolves sources against targets at every threshold and reports how many
// names each one maps. Scores are computed once; raising the threshold can only move names
// from mapped to unmatched. Points are returned in ascending threshold order.
func TuneThresholds(ctx context.Context, sources, targets []string, thresholds []float64, opts ResolveOptions) ([]SweepPoint, error) {
	if len(thresholds) == 0 {
		thresholds = DefaultSweep()
	}
	sorted := append([]float64{}, thresholds...)
	sort.Float64s(sorted)
	for _, t := range sorted {
		if err := CheckThreshold("sweep threshold", t); err != nil {
			return nil, err
		}
	}

	res, err := Resolve(ctx, sources, targets, 0, opts)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, 0, len(sorted))
	for _, t := range sorted {
		p := SweepPoint{Threshold: t}
		for _, s := range res.Sources {
			m := res.Best[s]
			if m.Found && m.Score >= t {
				p.Mapped++
			} else {
				p.Unmatched++
			}
		}
		if n := len(res.Sources); n > 0 {
			p.Rate = float64(p.Mapped) / float64(n)
		}
		points = append(points, p)
	}
	return points, nil
}
