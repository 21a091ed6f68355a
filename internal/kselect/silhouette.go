package kselect

import (
	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// WorstScore is the silhouette's defined minimum. Degenerate partitions
// (fewer than two populated clusters) are recorded at this value instead
// of aborting the sweep.
const WorstScore = -1.0

// Silhouette computes the mean silhouette coefficient over rows with
// cosine distance. rows and labels must be parallel slices. Points in
// singleton clusters contribute zero, matching the metric's standard
// definition.
func Silhouette(rows []vectorspace.Vector, labels []int) float64 {
	if len(rows) == 0 || len(rows) != len(labels) {
		return WorstScore
	}

	members := make(map[int][]int)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	if len(members) < 2 {
		return WorstScore
	}

	total := 0.0
	for i, row := range rows {
		own := labels[i]
		if len(members[own]) <= 1 {
			continue // singleton: contributes 0
		}

		a := 0.0
		for _, j := range members[own] {
			if j == i {
				continue
			}
			a += vectorspace.CosineDistance(row, rows[j])
		}
		a /= float64(len(members[own]) - 1)

		b := -1.0
		for l, idxs := range members {
			if l == own {
				continue
			}
			d := 0.0
			for _, j := range idxs {
				d += vectorspace.CosineDistance(row, rows[j])
			}
			d /= float64(len(idxs))
			if b < 0 || d < b {
				b = d
			}
		}

		max := a
		if b > max {
			max = b
		}
		if max > 0 {
			total += (b - a) / max
		}
	}
	return total / float64(len(rows))
}
