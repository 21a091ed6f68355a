package pipeline

import (
	"github.com/Kevin6098/thesis-split/internal/corpus"
	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// Snapshot types are the persisted (gob) forms of stage outputs. Labels
// narrow to the sentinel integer here and only here; in-process code
// works with corpus.Label.

// DocRecord is one document row in a snapshot.
type DocRecord struct {
	ID       string
	Position int
	Text     string
	Tokens   []string
	Valid    bool
	Cluster  int // sentinel form; -1 when unclustered
}

// CleanedCorpus is the clean stage's artifact.
type CleanedCorpus struct {
	Dataset string
	Docs    []DocRecord
}

// VectorSnapshot is the vectors stage's artifact: the matrix plus the
// validity split it was built from.
type VectorSnapshot struct {
	Space   vectorspace.VectorSpace
	Valid   []DocRecord
	Invalid []DocRecord
}

// ScoreSweep is the kselect stage's artifact.
type ScoreSweep struct {
	BestK    int
	Scores   map[int]float64
	Strategy string
	Sampled  int
}

// LabeledCorpus is the final clustering artifact: every input row, in
// original order, with its persisted label.
type LabeledCorpus struct {
	Dataset string
	K       int
	Docs    []DocRecord
}

// TopicModel is the lda stage's artifact: ranked top terms per topic.
type TopicModel struct {
	Dataset string
	Topics  int
	Terms   [][]string
}

// SentimentScores is the sentiment stage's artifact, positionally
// aligned with the cleaned corpus.
type SentimentScores struct {
	Dataset string
	Lexicon string
	Scores  []float64
}

// Documents converts a labeled corpus back to in-process documents.
func Documents(labeled LabeledCorpus) []corpus.Document {
	return fromRecords(labeled.Docs)
}

func toRecords(docs []corpus.Document) []DocRecord {
	out := make([]DocRecord, len(docs))
	for i, d := range docs {
		out[i] = DocRecord{
			ID:       d.ID,
			Position: d.Position,
			Text:     d.Text,
			Tokens:   d.Tokens,
			Valid:    d.Valid,
			Cluster:  d.Label.Sentinel(),
		}
	}
	return out
}

func fromRecords(records []DocRecord) []corpus.Document {
	out := make([]corpus.Document, len(records))
	for i, r := range records {
		out[i] = corpus.Document{
			ID:       r.ID,
			Position: r.Position,
			Text:     r.Text,
			Tokens:   r.Tokens,
			Valid:    r.Valid,
			Label:    corpus.LabelFromSentinel(r.Cluster),
		}
	}
	return out
}
