// Package kmeans fits the partitioning model used for topic clustering.
//
// The fitter runs Lloyd iterations over the unit-length term vectors
// with cosine distance: assignment maximizes the dot product and
// centroids are re-normalized after every update (spherical k-means).
// Initialization is k-means++ seeded from the caller's seed. Because a
// single initialization can settle in a poor local optimum, Fit runs
// several restarts and keeps the lowest-inertia model, so a fit is
// reproducible for a given seed and restart count.
package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/Kevin6098/thesis-split/internal/corpus"
	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// ErrTooFewDocuments is returned when k exceeds the number of rows.
var ErrTooFewDocuments = errors.New("more clusters requested than documents")

// Model is a fitted clustering model. Centroids are dense, unit-length
// rows over the vector space's vocabulary; the model is read-only after
// Fit returns.
type Model struct {
	K          int
	Dims       int
	Centroids  [][]float64
	Seed       int64
	Iterations int
	Inertia    float64
}

// Options tunes the fit. Zero values select the defaults.
type Options struct {
	Seed          int64
	MaxIterations int     // default 100
	Tolerance     float64 // centroid-shift convergence bound, default 1e-4
	Restarts      int     // independent initializations, default 3
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-4
	}
	if o.Restarts <= 0 {
		o.Restarts = 3
	}
	return o
}

// Fit clusters the vector space's rows into exactly k groups. It runs
// Options.Restarts independent initializations, each seeded from
// Options.Seed and the restart index, and returns the model with the
// lowest inertia.
func Fit(vs *vectorspace.VectorSpace, k int, opts Options) (*Model, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if k > len(vs.Rows) {
		return nil, fmt.Errorf("k=%d over %d documents: %w", k, len(vs.Rows), ErrTooFewDocuments)
	}

	opts = opts.withDefaults()
	var best *Model
	for attempt := 0; attempt < opts.Restarts; attempt++ {
		m := fitOnce(vs, k, opts.Seed+int64(attempt), opts)
		if best == nil || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// fitOnce runs one k-means++ initialization and Lloyd loop.
func fitOnce(vs *vectorspace.VectorSpace, k int, seed int64, opts Options) *Model {
	rng := rand.New(rand.NewSource(seed))
	dims := len(vs.Vocabulary)

	centroids := seedPlusPlus(vs.Rows, k, dims, rng)

	model := &Model{K: k, Dims: dims, Seed: seed}
	assignments := make([]int, len(vs.Rows))

	for iter := 0; iter < opts.MaxIterations; iter++ {
		for i, row := range vs.Rows {
			assignments[i] = nearest(row, centroids)
		}

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dims)
		}
		for i, row := range vs.Rows {
			c := assignments[i]
			counts[c]++
			for j, idx := range row.Idx {
				next[c][idx] += row.Val[j]
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Reseed an empty cluster to the row farthest from its
				// current centroid so every cluster stays populated.
				far := farthestRow(vs.Rows, assignments, centroids)
				copy(next[c], densify(vs.Rows[far], dims))
				assignments[far] = c
			}
			normalize(next[c])
		}

		shift := 0.0
		for c := range next {
			if d := euclidean(centroids[c], next[c]); d > shift {
				shift = d
			}
		}
		centroids = next
		model.Iterations = iter + 1
		if shift < opts.Tolerance {
			break
		}
	}

	model.Centroids = centroids
	inertia := 0.0
	for _, row := range vs.Rows {
		c := nearest(row, centroids)
		inertia += 1 - row.DotDense(centroids[c])
	}
	model.Inertia = inertia
	return model
}

// Predict returns the nearest-centroid index for each row.
func (m *Model) Predict(rows []vectorspace.Vector) []int {
	labels := make([]int, len(rows))
	for i, row := range rows {
		labels[i] = nearest(row, m.Centroids)
	}
	return labels
}

// Assign labels every valid document with its nearest cluster and every
// invalid document with the unclustered label, then merges both subsets
// back into original corpus order. The valid slice must correspond
// row-for-row to the vector space the model was fitted on.
func Assign(m *Model, vs *vectorspace.VectorSpace, valid, invalid []corpus.Document) ([]corpus.Document, error) {
	if len(valid) != len(vs.Rows) {
		return nil, fmt.Errorf("assign: %d valid documents but %d matrix rows", len(valid), len(vs.Rows))
	}

	labeled := make([]corpus.Document, len(valid))
	for i, d := range valid {
		d.Label = corpus.Clustered(nearest(vs.Rows[i], m.Centroids))
		labeled[i] = d
	}
	dropped := make([]corpus.Document, len(invalid))
	for i, d := range invalid {
		d.Label = corpus.Unclustered
		dropped[i] = d
	}

	merged, err := corpus.Merge(labeled, dropped)
	if err != nil {
		return nil, err
	}
	if err := corpus.CheckLabels(merged, m.K); err != nil {
		return nil, err
	}
	return merged, nil
}

// nearest picks the centroid with the highest dot product; ties resolve
// to the lowest index so prediction is deterministic.
func nearest(row vectorspace.Vector, centroids [][]float64) int {
	best := 0
	bestDot := math.Inf(-1)
	for c, centroid := range centroids {
		if dot := row.DotDense(centroid); dot > bestDot {
			bestDot = dot
			best = c
		}
	}
	return best
}

// seedPlusPlus runs k-means++ initialization over the rows.
func seedPlusPlus(rows []vectorspace.Vector, k, dims int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, densify(rows[rng.Intn(len(rows))], dims))

	dist := make([]float64, len(rows))
	for len(centroids) < k {
		total := 0.0
		for i, row := range rows {
			d := math.Inf(1)
			for _, centroid := range centroids {
				if cd := 1 - row.DotDense(centroid); cd < d {
					d = cd
				}
			}
			if d < 0 {
				d = 0
			}
			dist[i] = d * d
			total += dist[i]
		}

		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dist {
				acc += d
				if acc >= target {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(len(rows))
		}
		centroids = append(centroids, densify(rows[pick], dims))
	}
	return centroids
}

func farthestRow(rows []vectorspace.Vector, assignments []int, centroids [][]float64) int {
	far := 0
	farDist := -1.0
	for i, row := range rows {
		d := 1 - row.DotDense(centroids[assignments[i]])
		if d > farDist {
			farDist = d
			far = i
		}
	}
	return far
}

func densify(row vectorspace.Vector, dims int) []float64 {
	dense := make([]float64, dims)
	for j, idx := range row.Idx {
		dense[idx] = row.Val[j]
	}
	return dense
}

func normalize(v []float64) {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
