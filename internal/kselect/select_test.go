package kselect

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// threeGroupSpace builds twelve unit rows over three orthogonal term
// pairs, four tightly packed rows per pair. The natural partition has
// exactly three clusters.
func threeGroupSpace() *vectorspace.VectorSpace {
	rows := make([]vectorspace.Vector, 0, 12)
	for group := 0; group < 3; group++ {
		base := group * 2
		for step := 0; step < 4; step++ {
			theta := float64(step) * 10 * math.Pi / 180
			rows = append(rows, vectorspace.Vector{
				Idx: []int{base, base + 1},
				Val: []float64{math.Cos(theta), math.Sin(theta)},
			})
		}
	}
	return &vectorspace.VectorSpace{
		Rows:       rows,
		Vocabulary: []string{"t0", "t1", "t2", "t3", "t4", "t5"},
	}
}

func TestSelectKFindsNaturalCount(t *testing.T) {
	vs := threeGroupSpace()
	result, err := SelectK(vs, Options{KMin: 2, KMax: 5, Strategy: Exact, Seed: 42})
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	if result.BestK != 3 {
		t.Fatalf("selected k=%d, want 3 (scores %v)", result.BestK, result.Scores)
	}
	if result.Sampled != len(vs.Rows) {
		t.Fatalf("exact strategy scored %d rows, want all %d", result.Sampled, len(vs.Rows))
	}
	for k := 2; k <= 5; k++ {
		if _, ok := result.Scores[k]; !ok {
			t.Fatalf("score for k=%d missing", k)
		}
	}
}

func TestSelectKExcludesOversizedCandidates(t *testing.T) {
	vs := threeGroupSpace() // 12 rows
	result, err := SelectK(vs, Options{KMin: 2, KMax: 20, Strategy: Exact, Seed: 1})
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	for k := range result.Scores {
		if k >= len(vs.Rows) {
			t.Fatalf("scored k=%d with only %d rows", k, len(vs.Rows))
		}
	}
}

func TestSelectKNoCandidates(t *testing.T) {
	vs := &vectorspace.VectorSpace{Rows: []vectorspace.Vector{
		{Idx: []int{0}, Val: []float64{1}},
		{Idx: []int{1}, Val: []float64{1}},
	}}
	_, err := SelectK(vs, Options{KMin: 2, KMax: 4, Strategy: Exact, Seed: 1})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestSelectKValidatesRange(t *testing.T) {
	vs := threeGroupSpace()
	if _, err := SelectK(vs, Options{KMin: 1, KMax: 4, Strategy: Exact}); err == nil {
		t.Fatal("k_min below 2 must be rejected")
	}
	if _, err := SelectK(vs, Options{KMin: 4, KMax: 2, Strategy: Exact}); err == nil {
		t.Fatal("inverted range must be rejected")
	}
}

func TestSampledDeterministic(t *testing.T) {
	vs := threeGroupSpace()
	opts := Options{KMin: 2, KMax: 4, Strategy: Sampled, SampleSize: 8, Seed: 42}

	a, err := SelectK(vs, opts)
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	b, err := SelectK(vs, opts)
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	if !reflect.DeepEqual(a.Scores, b.Scores) || a.BestK != b.BestK {
		t.Fatalf("same seed produced different sweeps: %v vs %v", a.Scores, b.Scores)
	}
}

func TestParallelMatchesSampled(t *testing.T) {
	vs := threeGroupSpace()
	sampled, err := SelectK(vs, Options{KMin: 2, KMax: 5, Strategy: Sampled, SampleSize: 8, Seed: 42})
	if err != nil {
		t.Fatalf("SelectK sampled: %v", err)
	}
	parallel, err := SelectK(vs, Options{KMin: 2, KMax: 5, Strategy: Parallel, SampleSize: 8, Seed: 42, Workers: 3})
	if err != nil {
		t.Fatalf("SelectK parallel: %v", err)
	}
	if !reflect.DeepEqual(sampled.Scores, parallel.Scores) {
		t.Fatalf("parallel sweep diverged from sampled:\nsampled:  %v\nparallel: %v", sampled.Scores, parallel.Scores)
	}
	if sampled.BestK != parallel.BestK {
		t.Fatalf("parallel picked k=%d, sampled picked k=%d", parallel.BestK, sampled.BestK)
	}
}

func TestFullySampledFitsOnSample(t *testing.T) {
	vs := threeGroupSpace()
	result, err := SelectK(vs, Options{KMin: 2, KMax: 3, Strategy: FullySampled, SampleSize: 6, Seed: 42})
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	if result.Sampled != 6 {
		t.Fatalf("fully-sampled scored %d rows, want 6", result.Sampled)
	}
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{
		"exact":         Exact,
		"sampled":       Sampled,
		"fully-sampled": FullySampled,
		"parallel":      Parallel,
	} {
		got, err := ParseStrategy(name)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseStrategy("bogus"); err == nil {
		t.Fatal("unknown strategy must be rejected")
	}
}
