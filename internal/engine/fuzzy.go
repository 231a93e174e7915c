package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/epi-triangulate/internal/normalize"
)

// Match is the best-scoring target found for one source name.
type Match struct {
	Target string  `json:"target"`
	Score  float64 `json:"score"` // percent
	Found  bool    `json:"found"`
}

// Resolution is the outcome of matching one list of names against another.
// Every source name is either a key of Mapping or an entry of Unmatched, never both.
type Resolution struct {
	Threshold float64           `json:"threshold"`
	Mapping   map[string]string `json:"mapping"`
	Unmatched []string          `json:"unmatched"`
	Best      map[string]Match  `json:"best"`
	Sources   []string          `json:"-"`
	Targets   []string          `json:"-"`
}

// ResolveOptions tunes how the comparison loop runs. It never changes which target wins.
type ResolveOptions struct {
	// Workers > 1 scores source names in parallel.
	Workers int `json:"workers" toml:"workers"`
	// SortTargets orders the candidate list lexicographically before scoring so that
	// ties resolve the same way whatever order the target column was read in.
	SortTargets bool `json:"sort_targets" toml:"sort_targets"`
}

// Resolve finds, for every distinct source name, the distinct target name with the highest
// similarity. The earliest target wins a tie. A source is mapped when its best score is
// at least threshold percent, and unmatched otherwise. Unmatched keeps source order.
func Resolve(ctx context.Context, sources, targets []string, threshold float64, opts ResolveOptions) (*Resolution, error) {
	srcs := dedupe(sources)
	tgts := dedupe(targets)
	if opts.SortTargets {
		sort.Strings(tgts)
	}

	best, err := bestMatches(ctx, srcs, tgts, opts.Workers)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Threshold: threshold,
		Mapping:   make(map[string]string),
		Unmatched: []string{},
		Best:      make(map[string]Match, len(srcs)),
		Sources:   srcs,
		Targets:   tgts,
	}
	for i, s := range srcs {
		m := best[i]
		res.Best[s] = m
		if m.Found && m.Score >= threshold {
			res.Mapping[s] = m.Target
		} else {
			res.Unmatched = append(res.Unmatched, s)
		}
	}
	return res, nil
}

// Lookup applies the map-or-keep policy: the mapped target when there is one, else name.
func (r *Resolution) Lookup(name string) string {
	if t, ok := r.Mapping[name]; ok {
		return t
	}
	return name
}

// bestMatches scores every source against every target. Results are stored by source index,
// so the parallel path returns exactly what the sequential one does.
func bestMatches(ctx context.Context, sources, targets []string, workers int) ([]Match, error) {
	out := make([]Match, len(sources))
	if workers <= 1 || len(sources) < 2 {
		for i, s := range sources {
			if i%64 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			out[i] = bestMatch(s, targets)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = bestMatch(sources[i], targets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// bestMatch keeps a running maximum with a strict comparison, so a candidate must score
// above zero to be found at all.
func bestMatch(source string, targets []string) Match {
	var best Match
	for _, t := range targets {
		score := normalize.Percent(source, t)
		if score > best.Score {
			best = Match{Target: t, Score: score, Found: true}
		}
	}
	return best
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
