// Package vectorspace builds the weighted term-vector representation of
// a cleaned corpus.
//
// Documents are partitioned by validity first so vocabulary statistics
// are computed only over documents that can actually be vectorized. Term
// weighting is sublinear term frequency times smoothed inverse document
// frequency, with rows scaled to unit length.
package vectorspace

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

// ErrEmptyCorpus is returned when no valid documents remain after the
// validity partition. The pipeline cannot proceed past this stage.
var ErrEmptyCorpus = errors.New("no valid documents after validity partition")

// ErrEmptyVocabulary is returned when the document-frequency bounds
// exclude every term.
var ErrEmptyVocabulary = errors.New("document-frequency bounds excluded every term")

// VectorSpace is the immutable matrix representation of the valid
// subset: one unit-length sparse row per valid document, in the same
// order as the valid slice returned by Build.
type VectorSpace struct {
	Rows        []Vector
	Vocabulary  []string
	TermWeights []float64
}

// Options bounds the vocabulary. Zero values select the defaults.
type Options struct {
	// MaxVocabularySize caps the vocabulary, keeping the terms with the
	// highest corpus-wide occurrence count (default 20000).
	MaxVocabularySize int
	// MinDocFrequency excludes terms appearing in fewer documents
	// (default 1, i.e. keep everything).
	MinDocFrequency int
	// MaxDocFrequencyRatio excludes terms appearing in more than this
	// fraction of documents (default 1.0).
	MaxDocFrequencyRatio float64
}

func (o Options) withDefaults() Options {
	if o.MaxVocabularySize <= 0 {
		o.MaxVocabularySize = 20000
	}
	if o.MinDocFrequency <= 0 {
		o.MinDocFrequency = 1
	}
	if o.MaxDocFrequencyRatio <= 0 || o.MaxDocFrequencyRatio > 1 {
		o.MaxDocFrequencyRatio = 1.0
	}
	return o
}

// Build partitions documents by validity, then constructs the vector
// space from the valid subset only. Input documents are not mutated;
// the returned slices hold labeled copies.
func Build(docs []corpus.Document, opts Options) (*VectorSpace, []corpus.Document, []corpus.Document, error) {
	opts = opts.withDefaults()

	valid, invalid := corpus.Partition(docs)
	if len(valid) == 0 {
		return nil, nil, nil, fmt.Errorf("building vector space over %d documents: %w", len(docs), ErrEmptyCorpus)
	}

	// Document and collection frequencies over valid docs only.
	df := make(map[string]int)
	cf := make(map[string]int)
	for _, d := range valid {
		seen := make(map[string]struct{}, len(d.Tokens))
		for _, tok := range d.Tokens {
			cf[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDF := int(opts.MaxDocFrequencyRatio * float64(len(valid)))
	if maxDF < 1 {
		maxDF = 1
	}
	kept := make([]string, 0, len(df))
	for term, n := range df {
		if n < opts.MinDocFrequency || n > maxDF {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return nil, nil, nil, fmt.Errorf("min_df=%d max_df_ratio=%.2f over %d documents: %w",
			opts.MinDocFrequency, opts.MaxDocFrequencyRatio, len(valid), ErrEmptyVocabulary)
	}

	// Cap by corpus-wide occurrence count, ties broken alphabetically,
	// then index alphabetically for a stable vocabulary ordering.
	if len(kept) > opts.MaxVocabularySize {
		sort.Slice(kept, func(i, j int) bool {
			if cf[kept[i]] != cf[kept[j]] {
				return cf[kept[i]] > cf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opts.MaxVocabularySize]
	}
	sort.Strings(kept)

	index := make(map[string]int, len(kept))
	for i, term := range kept {
		index[term] = i
	}

	n := float64(len(valid))
	weights := make([]float64, len(kept))
	for i, term := range kept {
		weights[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]Vector, len(valid))
	for r, d := range valid {
		counts := make(map[int]int, len(d.Tokens))
		for _, tok := range d.Tokens {
			if i, ok := index[tok]; ok {
				counts[i]++
			}
		}
		idxs := make([]int, 0, len(counts))
		for i := range counts {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)

		vals := make([]float64, len(idxs))
		norm := 0.0
		for j, i := range idxs {
			v := (1 + math.Log(float64(counts[i]))) * weights[i]
			vals[j] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vals {
				vals[j] /= norm
			}
		}
		rows[r] = Vector{Idx: idxs, Val: vals}
	}

	slog.Debug("vector space built",
		"valid", len(valid), "invalid", len(invalid), "vocabulary", len(kept))

	return &VectorSpace{Rows: rows, Vocabulary: kept, TermWeights: weights}, valid, invalid, nil
}
