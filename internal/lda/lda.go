// Package lda fits a latent Dirichlet allocation topic model over the
// cleaned corpus with a collapsed Gibbs sampler. Topics are an
// unsupervised complement to the cluster labels: they describe what the
// corpus talks about without partitioning it.
//
// The sampler is seeded, so a fit is reproducible for a given corpus,
// option set, and seed.
package lda

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrEmptyCorpus is returned when no document contributes a token.
var ErrEmptyCorpus = errors.New("no tokens to model")

// Options tunes the fit. Zero values select the defaults.
type Options struct {
	Topics        int     // default 8
	Iterations    int     // Gibbs sweeps, default 100
	Alpha         float64 // document-topic prior, default 0.1
	Beta          float64 // topic-term prior, default 0.01
	MaxVocabulary int     // most frequent terms kept, default 20000
	Seed          int64
}

func (o Options) withDefaults() Options {
	if o.Topics <= 0 {
		o.Topics = 8
	}
	if o.Iterations <= 0 {
		o.Iterations = 100
	}
	if o.Alpha <= 0 {
		o.Alpha = 0.1
	}
	if o.Beta <= 0 {
		o.Beta = 0.01
	}
	if o.MaxVocabulary <= 0 {
		o.MaxVocabulary = 20000
	}
	return o
}

// Model is a fitted topic model. Counts are the sampler's final state;
// the model is read-only after Fit returns.
type Model struct {
	Topics      int
	Vocabulary  []string
	TermCounts  [][]int // topic x term
	TopicTotals []int
	Seed        int64
}

// Fit runs the collapsed Gibbs sampler over the token lists. Documents
// with no in-vocabulary tokens contribute nothing but are not an error;
// a corpus with no tokens at all is.
func Fit(docs [][]string, opts Options) (*Model, error) {
	opts = opts.withDefaults()

	vocab, index := buildVocabulary(docs, opts.MaxVocabulary)
	words, docOf := flatten(docs, index)
	if len(words) == 0 {
		return nil, ErrEmptyCorpus
	}

	k := opts.Topics
	v := len(vocab)
	rng := rand.New(rand.NewSource(opts.Seed))

	// Sampler state: one topic per token position plus the three count
	// tables the conditional distribution reads.
	assign := make([]int, len(words))
	docTopic := make(map[int][]int, len(docs))
	termCounts := make([][]int, k)
	topicTotals := make([]int, k)
	for t := range termCounts {
		termCounts[t] = make([]int, v)
	}
	for pos, w := range words {
		t := rng.Intn(k)
		assign[pos] = t
		d := docOf[pos]
		if docTopic[d] == nil {
			docTopic[d] = make([]int, k)
		}
		docTopic[d][t]++
		termCounts[t][w]++
		topicTotals[t]++
	}

	weights := make([]float64, k)
	vBeta := float64(v) * opts.Beta
	for iter := 0; iter < opts.Iterations; iter++ {
		for pos, w := range words {
			d := docOf[pos]
			old := assign[pos]
			docTopic[d][old]--
			termCounts[old][w]--
			topicTotals[old]--

			total := 0.0
			for t := 0; t < k; t++ {
				weights[t] = (float64(docTopic[d][t]) + opts.Alpha) *
					(float64(termCounts[t][w]) + opts.Beta) /
					(float64(topicTotals[t]) + vBeta)
				total += weights[t]
			}
			next := sampleWeighted(weights, total, rng)

			assign[pos] = next
			docTopic[d][next]++
			termCounts[next][w]++
			topicTotals[next]++
		}
	}

	return &Model{
		Topics:      k,
		Vocabulary:  vocab,
		TermCounts:  termCounts,
		TopicTotals: topicTotals,
		Seed:        opts.Seed,
	}, nil
}

// TopTerms returns the n highest-count terms per topic. Ties resolve
// lexicographically so the listing is deterministic.
func (m *Model) TopTerms(n int) [][]string {
	out := make([][]string, m.Topics)
	for t := range out {
		order := make([]int, len(m.Vocabulary))
		for i := range order {
			order[i] = i
		}
		counts := m.TermCounts[t]
		sort.Slice(order, func(a, b int) bool {
			ia, ib := order[a], order[b]
			if counts[ia] != counts[ib] {
				return counts[ia] > counts[ib]
			}
			return m.Vocabulary[ia] < m.Vocabulary[ib]
		})
		top := n
		if top > len(order) {
			top = len(order)
		}
		terms := make([]string, 0, top)
		for _, i := range order[:top] {
			if counts[i] == 0 {
				break
			}
			terms = append(terms, m.Vocabulary[i])
		}
		out[t] = terms
	}
	return out
}

// buildVocabulary keeps the maxTerms most frequent terms. Ties resolve
// lexicographically; term ids follow that order.
func buildVocabulary(docs [][]string, maxTerms int) ([]string, map[string]int) {
	freq := make(map[string]int)
	for _, tokens := range docs {
		for _, tok := range tokens {
			freq[tok]++
		}
	}
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(a, b int) bool {
		if freq[terms[a]] != freq[terms[b]] {
			return freq[terms[a]] > freq[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return terms, index
}

// flatten turns the token lists into one position stream, dropping
// out-of-vocabulary tokens.
func flatten(docs [][]string, index map[string]int) (words, docOf []int) {
	for d, tokens := range docs {
		for _, tok := range tokens {
			w, ok := index[tok]
			if !ok {
				continue
			}
			words = append(words, w)
			docOf = append(docOf, d)
		}
	}
	return words, docOf
}

func sampleWeighted(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	target := rng.Float64() * total
	acc := 0.0
	for t, w := range weights {
		acc += w
		if acc >= target {
			return t
		}
	}
	return len(weights) - 1
}
