package topics

import (
	"testing"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

func TestSummarize(t *testing.T) {
	docs := []corpus.Document{
		{ID: "a", Valid: true, Label: corpus.Clustered(0), Tokens: []string{"ramen", "ramen", "broth"}},
		{ID: "b", Valid: true, Label: corpus.Clustered(0), Tokens: []string{"ramen", "noodles"}},
		{ID: "c", Valid: true, Label: corpus.Clustered(1), Tokens: []string{"service", "staff"}},
		{ID: "d", Valid: false, Label: corpus.Unclustered},
	}

	summaries := Summarize(docs, 2)
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}

	// Sentinel bucket sorts first and carries no terms.
	if summaries[0].Cluster != corpus.SentinelLabel || summaries[0].Documents != 1 {
		t.Fatalf("sentinel summary = %+v", summaries[0])
	}
	if len(summaries[0].TopTerms) != 0 {
		t.Fatal("sentinel bucket should not rank terms")
	}

	c0 := summaries[1]
	if c0.Cluster != 0 || c0.Documents != 2 {
		t.Fatalf("cluster 0 summary = %+v", c0)
	}
	if len(c0.TopTerms) != 2 || c0.TopTerms[0].Text != "ramen" || c0.TopTerms[0].Count != 3 {
		t.Fatalf("cluster 0 terms = %+v", c0.TopTerms)
	}
	// Ties break alphabetically: broth before noodles at count 1.
	if c0.TopTerms[1].Text != "broth" {
		t.Fatalf("tie break wrong: %+v", c0.TopTerms)
	}

	if summaries[2].Cluster != 1 || summaries[2].Documents != 1 {
		t.Fatalf("cluster 1 summary = %+v", summaries[2])
	}
}
