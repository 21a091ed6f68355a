package lda

import (
	"errors"
	"reflect"
	"testing"
)

func reviewTokens() [][]string {
	docs := make([][]string, 0, 20)
	for i := 0; i < 10; i++ {
		docs = append(docs, []string{"ramen", "broth", "noodles", "delicious", "ramen", "broth"})
		docs = append(docs, []string{"staff", "service", "waiting", "rude", "staff", "service"})
	}
	return docs
}

func TestFitConservesCounts(t *testing.T) {
	docs := reviewTokens()
	model, err := Fit(docs, Options{Topics: 2, Iterations: 20, Seed: 42})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if model.Topics != 2 {
		t.Fatalf("model has %d topics, want 2", model.Topics)
	}
	if len(model.Vocabulary) != 8 {
		t.Fatalf("vocabulary has %d terms, want 8", len(model.Vocabulary))
	}

	tokens := 0
	for _, d := range docs {
		tokens += len(d)
	}
	assigned := 0
	for topic, total := range model.TopicTotals {
		sum := 0
		for _, c := range model.TermCounts[topic] {
			if c < 0 {
				t.Fatalf("negative count in topic %d", topic)
			}
			sum += c
		}
		if sum != total {
			t.Fatalf("topic %d total %d but term counts sum to %d", topic, total, sum)
		}
		assigned += total
	}
	if assigned != tokens {
		t.Fatalf("%d tokens assigned, corpus has %d", assigned, tokens)
	}
}

func TestFitDeterministic(t *testing.T) {
	docs := reviewTokens()
	a, err := Fit(docs, Options{Topics: 2, Iterations: 20, Seed: 7})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	b, err := Fit(docs, Options{Topics: 2, Iterations: 20, Seed: 7})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !reflect.DeepEqual(a.TermCounts, b.TermCounts) {
		t.Fatal("same seed produced different term counts")
	}
}

func TestFitEmptyCorpus(t *testing.T) {
	_, err := Fit([][]string{{}, nil}, Options{Topics: 2, Seed: 1})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestTopTermsOrdering(t *testing.T) {
	m := &Model{
		Topics:     1,
		Vocabulary: []string{"broth", "ramen", "unused", "waiting"},
		TermCounts: [][]int{{5, 9, 0, 5}},
	}
	got := m.TopTerms(4)[0]
	// Highest count first, ties lexicographic, zero-count terms cut.
	want := []string{"ramen", "broth", "waiting"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("top terms = %v, want %v", got, want)
	}
}

func TestBuildVocabularyCap(t *testing.T) {
	docs := [][]string{
		{"ramen", "ramen", "ramen", "broth", "broth", "staff"},
	}
	vocab, index := buildVocabulary(docs, 2)
	if !reflect.DeepEqual(vocab, []string{"ramen", "broth"}) {
		t.Fatalf("vocabulary = %v", vocab)
	}
	if _, ok := index["staff"]; ok {
		t.Fatal("capped term still indexed")
	}
}
