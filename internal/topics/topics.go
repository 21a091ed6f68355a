// Package topics summarizes a labeled corpus by the most frequent terms
// inside each cluster, giving a human a quick read on what each topic
// cluster is about.
package topics

import (
	"sort"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

// Term is one ranked keyword.
type Term struct {
	Text  string
	Count int
}

// ClusterSummary describes one cluster's size and leading vocabulary.
type ClusterSummary struct {
	Cluster   int
	Documents int
	TopTerms  []Term
}

// Summarize groups labeled documents by cluster and ranks each cluster's
// terms by occurrence count, ties alphabetical. Unclustered documents
// are reported under their own summary with cluster set to the sentinel.
func Summarize(docs []corpus.Document, topN int) []ClusterSummary {
	if topN <= 0 {
		topN = 10
	}

	freq := make(map[int]map[string]int)
	sizes := make(map[int]int)
	for _, d := range docs {
		cluster := d.Label.Sentinel()
		sizes[cluster]++
		if cluster == corpus.SentinelLabel {
			continue
		}
		if freq[cluster] == nil {
			freq[cluster] = make(map[string]int)
		}
		for _, tok := range d.Tokens {
			freq[cluster][tok]++
		}
	}

	clusters := make([]int, 0, len(sizes))
	for c := range sizes {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	summaries := make([]ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		summary := ClusterSummary{Cluster: c, Documents: sizes[c]}
		counts := freq[c]

		terms := make([]Term, 0, len(counts))
		for text, n := range counts {
			terms = append(terms, Term{Text: text, Count: n})
		}
		sort.Slice(terms, func(i, j int) bool {
			if terms[i].Count != terms[j].Count {
				return terms[i].Count > terms[j].Count
			}
			return terms[i].Text < terms[j].Text
		})
		if len(terms) > topN {
			terms = terms[:topN]
		}
		summary.TopTerms = terms
		summaries = append(summaries, summary)
	}
	return summaries
}
