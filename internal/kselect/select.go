// Package kselect chooses the cluster count automatically by sweeping a
// candidate range and scoring each trial partition with an internal
// validity metric (silhouette over cosine distances).
//
// Scoring the full corpus is cubic-ish in practice, so the selector
// offers sampled and parallel variants that trade fidelity for wall
// clock. Scores are only comparable within one strategy and sample.
package kselect

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/Kevin6098/thesis-split/internal/kmeans"
	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// ErrNoCandidates is returned when the k range leaves no candidate below
// the document count.
var ErrNoCandidates = errors.New("no candidate k below the valid document count")

// Options configures a sweep. KMin/KMax are inclusive.
type Options struct {
	KMin       int
	KMax       int
	Strategy   Strategy
	SampleSize int // scoring (and FullySampled fitting) sample; clamped to the valid count
	Workers    int // Parallel only; <=0 means all cores
	Seed       int64
}

// Result is the audited outcome of a sweep.
type Result struct {
	BestK    int
	Scores   map[int]float64
	Strategy string
	Sampled  int // documents used for scoring
}

// SelectK estimates the best cluster count for the vector space.
//
// Candidates with k >= the row count are excluded up front: a partition
// with single-point clusters trivially games the metric and must never
// be scored. Ties break toward the smaller k.
func SelectK(vs *vectorspace.VectorSpace, opts Options) (Result, error) {
	if opts.KMin < 2 {
		return Result{}, fmt.Errorf("k_min must be at least 2, got %d", opts.KMin)
	}
	if opts.KMax < opts.KMin {
		return Result{}, fmt.Errorf("k_max %d is below k_min %d", opts.KMax, opts.KMin)
	}

	fitRows := vs.Rows
	scoreIdx := allIndices(len(vs.Rows))

	sampleSize := opts.SampleSize
	if sampleSize <= 0 || sampleSize > len(vs.Rows) {
		sampleSize = len(vs.Rows)
	}

	switch opts.Strategy {
	case Sampled, Parallel:
		scoreIdx = sampleIndices(len(vs.Rows), sampleSize, opts.Seed)
	case FullySampled:
		scoreIdx = sampleIndices(len(vs.Rows), sampleSize, opts.Seed)
		sampled := make([]vectorspace.Vector, len(scoreIdx))
		for i, idx := range scoreIdx {
			sampled[i] = vs.Rows[idx]
		}
		fitRows = sampled
		scoreIdx = allIndices(len(sampled))
	}

	fitSpace := vs
	if opts.Strategy == FullySampled {
		fitSpace = &vectorspace.VectorSpace{Rows: fitRows, Vocabulary: vs.Vocabulary, TermWeights: vs.TermWeights}
	}

	var candidates []int
	for k := opts.KMin; k <= opts.KMax; k++ {
		if k >= len(fitRows) {
			continue
		}
		candidates = append(candidates, k)
	}
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("k range [%d,%d] over %d documents: %w",
			opts.KMin, opts.KMax, len(fitRows), ErrNoCandidates)
	}

	scores := make(map[int]float64, len(candidates))
	var err error
	if opts.Strategy == Parallel {
		scores, err = evaluateParallel(fitSpace, candidates, scoreIdx, opts)
	} else {
		for _, k := range candidates {
			score, evalErr := evaluateOne(fitSpace, k, scoreIdx, opts.Seed)
			if evalErr != nil {
				err = evalErr
				break
			}
			scores[k] = score
		}
	}
	if err != nil {
		return Result{}, fmt.Errorf("k sweep (%s): %w", opts.Strategy, err)
	}

	best := candidates[0]
	for _, k := range candidates[1:] {
		if scores[k] > scores[best] {
			best = k
		}
	}

	slog.Debug("k sweep finished", "strategy", opts.Strategy.String(), "best_k", best, "candidates", len(candidates))

	return Result{
		BestK:    best,
		Scores:   scores,
		Strategy: opts.Strategy.String(),
		Sampled:  len(scoreIdx),
	}, nil
}

// evaluateOne fits a trial model for one candidate k and scores the
// partition over the scoring subset. A degenerate partition yields the
// metric's worst value, never an error.
func evaluateOne(vs *vectorspace.VectorSpace, k int, scoreIdx []int, seed int64) (float64, error) {
	model, err := kmeans.Fit(vs, k, kmeans.Options{Seed: deriveSeed(seed, k)})
	if err != nil {
		return 0, fmt.Errorf("trial fit k=%d: %w", k, err)
	}
	labels := model.Predict(vs.Rows)

	rows := make([]vectorspace.Vector, len(scoreIdx))
	sub := make([]int, len(scoreIdx))
	for i, idx := range scoreIdx {
		rows[i] = vs.Rows[idx]
		sub[i] = labels[idx]
	}
	return Silhouette(rows, sub), nil
}

// evaluateParallel fans candidates out over a bounded worker pool. Any
// worker error aborts the sweep: an incomplete score map cannot yield a
// meaningful argmax.
func evaluateParallel(vs *vectorspace.VectorSpace, candidates, scoreIdx []int, opts Options) (map[int]float64, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	type unit struct {
		k     int
		score float64
		err   error
	}

	jobs := make(chan int)
	results := make(chan unit, len(candidates))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for k := range jobs {
				score, err := evaluateOne(vs, k, scoreIdx, opts.Seed)
				results <- unit{k: k, score: score, err: err}
			}
		}()
	}

	for _, k := range candidates {
		jobs <- k
	}
	close(jobs)
	wg.Wait()
	close(results)

	scores := make(map[int]float64, len(candidates))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		scores[r.k] = r.score
	}
	return scores, nil
}

// deriveSeed gives each candidate its own deterministic generator seed,
// independent of scheduling order.
func deriveSeed(seed int64, k int) int64 {
	return seed*31 + int64(k)
}

// sampleIndices draws size indices from [0,n) without replacement using
// a generator seeded only by seed, so two runs draw the same sample.
func sampleIndices(n, size int, seed int64) []int {
	if size >= n {
		return allIndices(n)
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(n)[:size]
	sort.Ints(idx)
	return idx
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
