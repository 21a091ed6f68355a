// Package clean normalizes raw review text into the cleaned token stream
// the clustering pipeline consumes.
//
// The cleaner strips obvious noise (URLs, emails, hashtags, markup,
// digits), lowercases, splits on non-word boundaries, and drops
// stopwords and single-character tokens. It deliberately stops short of
// language-specific morphology; a richer tokenizer can be swapped in by
// implementing the same one-document-in, tokens-out contract.
package clean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Kevin6098/thesis-split/internal/corpus"
)

var (
	reURL     = regexp.MustCompile(`https?://\S+`)
	reEmail   = regexp.MustCompile(`\S+@\S+`)
	reTag     = regexp.MustCompile(`<[^>]+>`)
	reHashtag = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	reDigits  = regexp.MustCompile(`[0-9]+`)
)

// Cleaner turns raw text into normalized tokens.
type Cleaner struct {
	stopwords map[string]struct{}
	minRunes  int
}

// Options configures a Cleaner. Zero values select the defaults.
type Options struct {
	// ExtraStopwords extends the built-in stopword list.
	ExtraStopwords []string
	// MinTokenRunes drops tokens shorter than this many runes (default 2).
	MinTokenRunes int
}

// New creates a Cleaner with the built-in stopword list plus any extras.
func New(opts Options) *Cleaner {
	stops := make(map[string]struct{}, len(defaultStopwords)+len(opts.ExtraStopwords))
	for _, w := range defaultStopwords {
		stops[w] = struct{}{}
	}
	for _, w := range opts.ExtraStopwords {
		stops[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	minRunes := opts.MinTokenRunes
	if minRunes <= 0 {
		minRunes = 2
	}
	return &Cleaner{stopwords: stops, minRunes: minRunes}
}

// Tokens runs the full normalization pipeline on one document's text.
func (c *Cleaner) Tokens(text string) []string {
	text = strings.ToLower(text)
	text = reURL.ReplaceAllString(text, " ")
	text = reEmail.ReplaceAllString(text, " ")
	text = reHashtag.ReplaceAllString(text, " ")
	text = reTag.ReplaceAllString(text, " ")
	text = reDigits.ReplaceAllString(text, " ")

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := current.String()
		current.Reset()
		if utf8.RuneCountInString(tok) < c.minRunes {
			return
		}
		if _, stop := c.stopwords[tok]; stop {
			return
		}
		tokens = append(tokens, tok)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || r == '_' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// Corpus applies Tokens to every document, returning new copies with the
// Tokens field populated. Input documents are not mutated.
func (c *Cleaner) Corpus(docs []corpus.Document) []corpus.Document {
	out := make([]corpus.Document, len(docs))
	for i, d := range docs {
		d.Tokens = c.Tokens(d.Text)
		out[i] = d
	}
	return out
}
