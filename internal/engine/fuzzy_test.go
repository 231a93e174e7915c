package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/epi-triangulate/internal/normalize"
)

func TestResolveScenarios(t *testing.T) {
	tests := []struct {
		name          string
		sources       []string
		targets       []string
		threshold     float64
		wantMapping   map[string]string
		wantUnmatched []string
	}{
		{
			name:          "near spellings",
			sources:       []string{"Addis Ababa", "Adama"},
			targets:       []string{"Addis Abeba", "Adama", "Hawassa"},
			threshold:     80,
			wantMapping:   map[string]string{"Addis Ababa": "Addis Abeba", "Adama": "Adama"},
			wantUnmatched: []string{},
		},
		{
			name:          "nothing close",
			sources:       []string{"Xyzzy"},
			targets:       []string{"Addis Abeba"},
			threshold:     80,
			wantMapping:   map[string]string{},
			wantUnmatched: []string{"Xyzzy"},
		},
		{
			name:          "empty targets",
			sources:       []string{"Adama", "Bishoftu"},
			targets:       nil,
			threshold:     0,
			wantMapping:   map[string]string{},
			wantUnmatched: []string{"Adama", "Bishoftu"},
		},
		{
			name:          "empty sources",
			sources:       nil,
			targets:       []string{"Adama"},
			threshold:     80,
			wantMapping:   map[string]string{},
			wantUnmatched: []string{},
		},
		{
			name:          "threshold is inclusive",
			sources:       []string{"Addis Ababa"},
			targets:       []string{"Addis Abeba"},
			threshold:     normalize.Percent("Addis Ababa", "Addis Abeba"),
			wantMapping:   map[string]string{"Addis Ababa": "Addis Abeba"},
			wantUnmatched: []string{},
		},
		{
			name:          "duplicates collapse",
			sources:       []string{"Adama", "Adama", "Xyzzy", "Xyzzy"},
			targets:       []string{"Adama", "Adama"},
			threshold:     80,
			wantMapping:   map[string]string{"Adama": "Adama"},
			wantUnmatched: []string{"Xyzzy"},
		},
		{
			name:          "case differences lower the score",
			sources:       []string{"ADAMA"},
			targets:       []string{"Adama"},
			threshold:     80,
			wantMapping:   map[string]string{},
			wantUnmatched: []string{"ADAMA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(context.Background(), tt.sources, tt.targets, tt.threshold, ResolveOptions{})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !reflect.DeepEqual(res.Mapping, tt.wantMapping) {
				t.Errorf("Mapping = %v, want %v", res.Mapping, tt.wantMapping)
			}
			if !reflect.DeepEqual(res.Unmatched, tt.wantUnmatched) {
				t.Errorf("Unmatched = %v, want %v", res.Unmatched, tt.wantUnmatched)
			}
		})
	}
}

func TestResolveTieBreak(t *testing.T) {
	// "abcd" scores 75 against both candidates
	sources := []string{"abcd"}

	res, err := Resolve(context.Background(), sources, []string{"bcde", "abce"}, 70, ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := res.Mapping["abcd"]; got != "bcde" {
		t.Errorf("tie resolved to %q, want first-seen %q", got, "bcde")
	}

	res, err = Resolve(context.Background(), sources, []string{"bcde", "abce"}, 70, ResolveOptions{SortTargets: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := res.Mapping["abcd"]; got != "abce" {
		t.Errorf("sorted tie resolved to %q, want %q", got, "abce")
	}
}

func TestResolveRecordsBestForUnmatched(t *testing.T) {
	res, err := Resolve(context.Background(), []string{"Addis Ababa"}, []string{"Addis Abeba"}, 95, ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	m := res.Best["Addis Ababa"]
	if !m.Found || m.Target != "Addis Abeba" {
		t.Errorf("Best = %+v", m)
	}
	if len(res.Mapping) != 0 || len(res.Unmatched) != 1 {
		t.Errorf("expected the name to stay unmatched at 95, got mapping %v", res.Mapping)
	}
}

func TestLookupMapOrKeep(t *testing.T) {
	res := &Resolution{Mapping: map[string]string{"Oromiya": "Oromia"}}
	if got := res.Lookup("Oromiya"); got != "Oromia" {
		t.Errorf("Lookup(mapped) = %q", got)
	}
	if got := res.Lookup("Afar"); got != "Afar" {
		t.Errorf("Lookup(unmapped) = %q", got)
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := Resolve(ctx, []string{"a", "b", "c"}, []string{"a"}, 80, ResolveOptions{Workers: workers})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: error = %v, want context.Canceled", workers, err)
		}
	}
}

func fakeNames(f *gofakeit.Faker, n int) []string {
	out := make([]string, n)
	for i := range out {
		switch i % 3 {
		case 0:
			out[i] = f.City()
		case 1:
			out[i] = f.LastName()
		default:
			out[i] = f.Word()
		}
	}
	return out
}

func TestResolveProperties(t *testing.T) {
	f := gofakeit.New(20240611)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		sources := fakeNames(f, 25)
		targets := append(fakeNames(f, 20), sources[:5]...)
		distinct := len(dedupe(sources))

		first, err := Resolve(ctx, sources, targets, 70, ResolveOptions{})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		// determinism
		second, _ := Resolve(ctx, sources, targets, 70, ResolveOptions{})
		if !reflect.DeepEqual(first.Mapping, second.Mapping) || !reflect.DeepEqual(first.Unmatched, second.Unmatched) {
			t.Fatalf("round %d: results differ between identical calls", round)
		}

		// parallel scoring returns the same result
		parallel, err := Resolve(ctx, sources, targets, 70, ResolveOptions{Workers: 4})
		if err != nil {
			t.Fatalf("Resolve(parallel) error = %v", err)
		}
		if !reflect.DeepEqual(first.Mapping, parallel.Mapping) || !reflect.DeepEqual(first.Unmatched, parallel.Unmatched) {
			t.Fatalf("round %d: parallel result differs from sequential", round)
		}

		// partition and monotonicity
		prevMapped, prevUnmatched := -1, -1
		for _, threshold := range DefaultSweep() {
			res, err := Resolve(ctx, sources, targets, threshold, ResolveOptions{})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if len(res.Mapping)+len(res.Unmatched) != distinct {
				t.Fatalf("round %d threshold %v: %d mapped + %d unmatched != %d sources",
					round, threshold, len(res.Mapping), len(res.Unmatched), distinct)
			}
			for _, u := range res.Unmatched {
				if _, ok := res.Mapping[u]; ok {
					t.Fatalf("%q is both mapped and unmatched", u)
				}
			}
			if prevMapped >= 0 && (len(res.Mapping) > prevMapped || len(res.Unmatched) < prevUnmatched) {
				t.Fatalf("round %d: raising the threshold to %v grew the mapping", round, threshold)
			}
			prevMapped, prevUnmatched = len(res.Mapping), len(res.Unmatched)

			targetSet := make(map[string]bool)
			for _, tg := range targets {
				targetSet[tg] = true
			}
			for s, tg := range res.Mapping {
				if !targetSet[tg] {
					t.Fatalf("%q mapped to %q which is not a target", s, tg)
				}
			}
		}
	}
}

func TestResolveSelfMatch(t *testing.T) {
	f := gofakeit.New(7)
	names := dedupe(fakeNames(f, 40))

	res, err := Resolve(context.Background(), names, names, 100, ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Unmatched) != 0 {
		t.Errorf("Unmatched = %v, want none", res.Unmatched)
	}
	for _, n := range names {
		if res.Mapping[n] != n {
			t.Errorf("%q mapped to %q", n, res.Mapping[n])
		}
	}
}
