package vectorspace

// Vector is a sparse term-weight row. Indices are strictly increasing
// into the owning space's vocabulary. Rows produced by Build are scaled
// to unit length, so cosine similarity reduces to a dot product.
type Vector struct {
	Idx []int
	Val []float64
}

// Dot returns the dot product of two sparse vectors.
func (v Vector) Dot(w Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v.Idx) && j < len(w.Idx) {
		switch {
		case v.Idx[i] == w.Idx[j]:
			sum += v.Val[i] * w.Val[j]
			i++
			j++
		case v.Idx[i] < w.Idx[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// DotDense returns the dot product against a dense vector, typically a
// cluster centroid.
func (v Vector) DotDense(dense []float64) float64 {
	sum := 0.0
	for i, idx := range v.Idx {
		if idx < len(dense) {
			sum += v.Val[i] * dense[idx]
		}
	}
	return sum
}

// CosineDistance is 1 - dot for unit vectors; clamped at zero to absorb
// floating-point drift.
func CosineDistance(a, b Vector) float64 {
	d := 1.0 - a.Dot(b)
	if d < 0 {
		return 0
	}
	return d
}
