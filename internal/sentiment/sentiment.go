// Package sentiment scores cleaned documents with a keyword lexicon.
// The score is the signed share of polar tokens: (positive - negative)
// over total polar hits, in [-1, 1], with 0 for documents containing no
// polar token at all.
package sentiment

// LexiconVersion identifies the built-in lexicon in cache keys, so a
// lexicon change invalidates stale sentiment artifacts.
const LexiconVersion = "builtin-v1"

// Scorer holds the polarity lexicon.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewScorer creates a Scorer over the built-in lexicon.
func NewScorer() *Scorer {
	return &Scorer{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
	}
}

// Score rates one document's cleaned tokens.
func (s *Scorer) Score(tokens []string) float64 {
	pos, neg := 0, 0
	for _, tok := range tokens {
		if _, ok := s.positive[tok]; ok {
			pos++
			continue
		}
		if _, ok := s.negative[tok]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var positiveWords = []string{
	"amazing", "awesome", "best", "delicious", "enjoyable", "excellent",
	"fantastic", "favorite", "fresh", "friendly", "good", "great",
	"happy", "helpful", "impressive", "love", "loved", "nice", "perfect",
	"pleasant", "recommend", "recommended", "satisfying", "tasty",
	"wonderful", "worth",
}

var negativeWords = []string{
	"awful", "bad", "bland", "cold", "disappointed", "disappointing",
	"dirty", "expensive", "greasy", "hate", "horrible", "mediocre",
	"overpriced", "poor", "rude", "slow", "stale", "terrible",
	"underwhelming", "unfriendly", "worst",
}
