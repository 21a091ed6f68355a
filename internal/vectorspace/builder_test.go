package vectorspace

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

func tokdoc(id string, pos int, tokens ...string) corpus.Document {
	return corpus.Document{ID: id, Position: pos, Tokens: tokens}
}

func TestBuildUnitRows(t *testing.T) {
	docs := []corpus.Document{
		tokdoc("a", 0, "pasta", "pasta", "fresh"),
		tokdoc("b", 1, "pasta", "slow"),
		tokdoc("c", 2), // invalid
		tokdoc("d", 3, "fresh", "slow", "service"),
	}

	vs, valid, invalid, err := Build(docs, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(valid) != 3 || len(invalid) != 1 {
		t.Fatalf("expected 3 valid, 1 invalid; got %d, %d", len(valid), len(invalid))
	}
	if len(vs.Rows) != len(valid) {
		t.Fatalf("row count %d does not match valid count %d", len(vs.Rows), len(valid))
	}
	if !sort.StringsAreSorted(vs.Vocabulary) {
		t.Fatalf("vocabulary not sorted: %v", vs.Vocabulary)
	}

	for i, row := range vs.Rows {
		norm := 0.0
		for _, v := range row.Val {
			norm += v * v
		}
		if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
			t.Fatalf("row %d norm = %f, want 1", i, math.Sqrt(norm))
		}
		for j := 1; j < len(row.Idx); j++ {
			if row.Idx[j] <= row.Idx[j-1] {
				t.Fatalf("row %d indices not strictly increasing", i)
			}
		}
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	docs := []corpus.Document{tokdoc("a", 0), tokdoc("b", 1)}
	_, _, _, err := Build(docs, Options{})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestBuildFrequencyBounds(t *testing.T) {
	// "common" appears in all four docs, "rare" in one.
	docs := []corpus.Document{
		tokdoc("a", 0, "common", "rare", "shared"),
		tokdoc("b", 1, "common", "shared"),
		tokdoc("c", 2, "common", "shared"),
		tokdoc("d", 3, "common"),
	}

	vs, _, _, err := Build(docs, Options{MinDocFrequency: 2, MaxDocFrequencyRatio: 0.9})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(vs.Vocabulary) != 1 || vs.Vocabulary[0] != "shared" {
		t.Fatalf("bounds should leave only \"shared\", got %v", vs.Vocabulary)
	}

	// Bounds that exclude everything are an error, not a silent empty space.
	_, _, _, err = Build(docs, Options{MinDocFrequency: 5})
	if !errors.Is(err, ErrEmptyVocabulary) {
		t.Fatalf("expected ErrEmptyVocabulary, got %v", err)
	}
}

func TestBuildVocabularyCap(t *testing.T) {
	docs := []corpus.Document{
		tokdoc("a", 0, "keep", "keep", "keep", "drop"),
		tokdoc("b", 1, "keep", "also"),
		tokdoc("c", 2, "keep", "also"),
	}

	vs, _, _, err := Build(docs, Options{MaxVocabularySize: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"also", "keep"}
	if len(vs.Vocabulary) != 2 || vs.Vocabulary[0] != want[0] || vs.Vocabulary[1] != want[1] {
		t.Fatalf("cap kept %v, want %v", vs.Vocabulary, want)
	}
}

func TestSparseDot(t *testing.T) {
	a := Vector{Idx: []int{0, 2, 5}, Val: []float64{1, 2, 3}}
	b := Vector{Idx: []int{2, 3, 5}, Val: []float64{4, 5, 6}}
	if got := a.Dot(b); got != 2*4+3*6 {
		t.Fatalf("Dot = %f, want 26", got)
	}
	if got := a.DotDense([]float64{1, 0, 1, 0, 0, 1}); got != 1+2+3 {
		t.Fatalf("DotDense = %f, want 6", got)
	}
	if d := CosineDistance(a, a); d < 0 {
		t.Fatalf("CosineDistance must clamp at zero, got %f", d)
	}
}
