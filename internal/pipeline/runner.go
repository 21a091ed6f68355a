// Package pipeline wires the clustering stages together behind the
// artifact cache. Every stage is idempotent: it loads its artifact when
// present and recomputes it otherwise, so any prefix of the pipeline can
// be resumed without redoing the rest.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Kevin6098/thesis-split/internal/cache"
	"github.com/Kevin6098/thesis-split/internal/chunker"
	"github.com/Kevin6098/thesis-split/internal/clean"
	"github.com/Kevin6098/thesis-split/internal/corpus"
	"github.com/Kevin6098/thesis-split/internal/kmeans"
	"github.com/Kevin6098/thesis-split/internal/kselect"
	"github.com/Kevin6098/thesis-split/internal/lda"
	"github.com/Kevin6098/thesis-split/internal/sentiment"
	"github.com/Kevin6098/thesis-split/internal/vectorspace"
)

// Params carries every knob a stage declares in its cache key.
type Params struct {
	Dataset    string
	CSVPath    string
	IDColumn   string
	TextColumn string

	Vector vectorspace.Options

	Topics int // lda stage topic count; 0 uses the lda default

	K          int // explicit cluster count; 0 selects automatically
	KMin       int
	KMax       int
	Strategy   kselect.Strategy
	SampleSize int
	Workers    int
	ChunkSize  int
	Seed       int64

	ExtraStopwords []string
}

// Runner executes stages against one cache manager, printing the
// human-auditable summary every stage owes its operator.
type Runner struct {
	cache *cache.Manager
	out   io.Writer
}

// NewRunner creates a Runner. A nil out writes summaries to stdout.
func NewRunner(c *cache.Manager, out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{cache: c, out: out}
}

func (p Params) cleanKey() cache.StageKey {
	return cache.StageKey{Stage: "clean", Dataset: p.Dataset, Params: map[string]string{
		"id_column":   p.IDColumn,
		"text_column": p.TextColumn,
		"stopwords":   strings.Join(p.ExtraStopwords, ","),
	}}
}

func (p Params) vectorsKey() cache.StageKey {
	return cache.StageKey{Stage: "vectors", Dataset: p.Dataset, Params: map[string]string{
		"clean":        p.cleanKey().Fingerprint(),
		"max_vocab":    strconv.Itoa(p.Vector.MaxVocabularySize),
		"min_df":       strconv.Itoa(p.Vector.MinDocFrequency),
		"max_df_ratio": fmt.Sprintf("%.4f", p.Vector.MaxDocFrequencyRatio),
	}}
}

func (p Params) kselectKey() cache.StageKey {
	return cache.StageKey{Stage: "kselect", Dataset: p.Dataset, Params: map[string]string{
		"vectors":     p.vectorsKey().Fingerprint(),
		"k_min":       strconv.Itoa(p.KMin),
		"k_max":       strconv.Itoa(p.KMax),
		"strategy":    p.Strategy.String(),
		"sample_size": strconv.Itoa(p.SampleSize),
		"seed":        strconv.FormatInt(p.Seed, 10),
	}}
}

func (p Params) modelKey(k int) cache.StageKey {
	return cache.StageKey{Stage: "model", Dataset: p.Dataset, Params: map[string]string{
		"vectors": p.vectorsKey().Fingerprint(),
		"k":       strconv.Itoa(k),
		"seed":    strconv.FormatInt(p.Seed, 10),
	}}
}

func (p Params) labeledKey(k int) cache.StageKey {
	return cache.StageKey{Stage: "labeled", Dataset: p.Dataset, Params: map[string]string{
		"model": p.modelKey(k).Fingerprint(),
	}}
}

func (p Params) chunkedKey() cache.StageKey {
	return cache.StageKey{Stage: "labeled-chunked", Dataset: p.Dataset, Params: map[string]string{
		// The vectors fingerprint folds in the clean key and the
		// vocabulary knobs the per-chunk vectorizer uses.
		"vectors":     p.vectorsKey().Fingerprint(),
		"chunk_size":  strconv.Itoa(p.ChunkSize),
		"k":           strconv.Itoa(p.K),
		"k_min":       strconv.Itoa(p.KMin),
		"k_max":       strconv.Itoa(p.KMax),
		"strategy":    p.Strategy.String(),
		"sample_size": strconv.Itoa(p.SampleSize),
		"seed":        strconv.FormatInt(p.Seed, 10),
	}}
}

func (p Params) ldaKey() cache.StageKey {
	return cache.StageKey{Stage: "lda", Dataset: p.Dataset, Params: map[string]string{
		"clean":     p.cleanKey().Fingerprint(),
		"topics":    strconv.Itoa(p.Topics),
		"max_vocab": strconv.Itoa(p.Vector.MaxVocabularySize),
		"seed":      strconv.FormatInt(p.Seed, 10),
	}}
}

func (p Params) sentimentKey() cache.StageKey {
	return cache.StageKey{Stage: "sentiment", Dataset: p.Dataset, Params: map[string]string{
		"clean":   p.cleanKey().Fingerprint(),
		"lexicon": sentiment.LexiconVersion,
	}}
}

// Clean loads the raw corpus and produces the cleaned-corpus artifact.
func (r *Runner) Clean(p Params) (CleanedCorpus, error) {
	return cache.GetOrCompute(r.cache, p.cleanKey(), func() (CleanedCorpus, error) {
		docs, err := corpus.LoadCSV(p.CSVPath, p.IDColumn, p.TextColumn)
		if err != nil {
			return CleanedCorpus{}, err
		}
		fmt.Fprintf(r.out, "loaded %d documents from %s\n", len(docs), p.CSVPath)

		cleaner := clean.New(clean.Options{ExtraStopwords: p.ExtraStopwords})
		cleaned := cleaner.Corpus(docs)

		empty := 0
		for _, d := range cleaned {
			if len(d.Tokens) == 0 {
				empty++
			}
		}
		fmt.Fprintf(r.out, "cleaned corpus %s: %d documents, %d with no tokens\n", p.Dataset, len(cleaned), empty)

		return CleanedCorpus{Dataset: p.Dataset, Docs: toRecords(cleaned)}, nil
	})
}

// Cleaned returns the cleaned-corpus artifact or a MissingStageError
// telling the operator to run the clean stage first.
func (r *Runner) Cleaned(p Params, requested string) (CleanedCorpus, error) {
	key := p.cleanKey()
	if !r.cache.Has(key) {
		return CleanedCorpus{}, &MissingStageError{Requested: requested, Missing: "clean", Dataset: p.Dataset}
	}
	return cache.Load[CleanedCorpus](r.cache.Path(key))
}

// Vectors builds (or loads) the vector-space artifact from the cleaned
// corpus.
func (r *Runner) Vectors(p Params) (VectorSnapshot, error) {
	return cache.GetOrCompute(r.cache, p.vectorsKey(), func() (VectorSnapshot, error) {
		cleaned, err := r.Cleaned(p, "vectors")
		if err != nil {
			return VectorSnapshot{}, err
		}
		space, valid, invalid, err := vectorspace.Build(fromRecords(cleaned.Docs), p.Vector)
		if err != nil {
			return VectorSnapshot{}, err
		}
		fmt.Fprintf(r.out, "vector space %s: %d valid rows, %d invalid, vocabulary %d\n",
			p.Dataset, len(valid), len(invalid), len(space.Vocabulary))
		return VectorSnapshot{Space: *space, Valid: toRecords(valid), Invalid: toRecords(invalid)}, nil
	})
}

// SelectK runs (or loads) the validity-score sweep.
func (r *Runner) SelectK(p Params) (ScoreSweep, error) {
	return cache.GetOrCompute(r.cache, p.kselectKey(), func() (ScoreSweep, error) {
		vec, err := r.Vectors(p)
		if err != nil {
			return ScoreSweep{}, err
		}
		result, err := kselect.SelectK(&vec.Space, kselect.Options{
			KMin:       p.KMin,
			KMax:       p.KMax,
			Strategy:   p.Strategy,
			SampleSize: p.SampleSize,
			Workers:    p.Workers,
			Seed:       p.Seed,
		})
		if err != nil {
			return ScoreSweep{}, err
		}
		for k := p.KMin; k <= p.KMax; k++ {
			if score, ok := result.Scores[k]; ok {
				fmt.Fprintf(r.out, "  k=%2d  silhouette=%.4f\n", k, score)
			}
		}
		fmt.Fprintf(r.out, "selected k=%d (%s, scored on %d documents)\n", result.BestK, result.Strategy, result.Sampled)
		return ScoreSweep{BestK: result.BestK, Scores: result.Scores, Strategy: result.Strategy, Sampled: result.Sampled}, nil
	})
}

// Cluster fits the model for the chosen k and produces the labeled
// corpus. An explicit Params.K skips selection entirely.
func (r *Runner) Cluster(p Params) (LabeledCorpus, *kmeans.Model, error) {
	vec, err := r.Vectors(p)
	if err != nil {
		return LabeledCorpus{}, nil, err
	}

	k := p.K
	if k <= 0 {
		sweep, err := r.SelectK(p)
		if err != nil {
			return LabeledCorpus{}, nil, err
		}
		k = sweep.BestK
	} else {
		fmt.Fprintf(r.out, "using explicit k=%d\n", k)
	}

	model, err := cache.GetOrCompute(r.cache, p.modelKey(k), func() (kmeans.Model, error) {
		m, err := kmeans.Fit(&vec.Space, k, kmeans.Options{Seed: p.Seed})
		if err != nil {
			return kmeans.Model{}, err
		}
		return *m, nil
	})
	if err != nil {
		return LabeledCorpus{}, nil, err
	}

	labeled, err := cache.GetOrCompute(r.cache, p.labeledKey(k), func() (LabeledCorpus, error) {
		merged, err := kmeans.Assign(&model, &vec.Space, fromRecords(vec.Valid), fromRecords(vec.Invalid))
		if err != nil {
			return LabeledCorpus{}, err
		}
		fmt.Fprintf(r.out, "labeled corpus %s: %d documents (%d clustered, %d unclusterable), k=%d\n",
			p.Dataset, len(merged), len(vec.Valid), len(vec.Invalid), k)
		return LabeledCorpus{Dataset: p.Dataset, K: k, Docs: toRecords(merged)}, nil
	})
	if err != nil {
		return LabeledCorpus{}, nil, err
	}
	return labeled, &model, nil
}

// Chunked runs the whole pipeline independently per chunk and combines
// the outputs. Chunk label spaces are local; see package chunker.
func (r *Runner) Chunked(p Params) (LabeledCorpus, chunker.CombineReport, error) {
	var report chunker.CombineReport
	labeled, err := cache.GetOrCompute(r.cache, p.chunkedKey(), func() (LabeledCorpus, error) {
		cleaned, err := r.Cleaned(p, "chunked")
		if err != nil {
			return LabeledCorpus{}, err
		}
		docs := fromRecords(cleaned.Docs)

		chunks := chunker.Split(docs, p.ChunkSize)
		fmt.Fprintf(r.out, "chunked %s: %d documents into %d chunks of <=%d\n",
			p.Dataset, len(docs), len(chunks), p.ChunkSize)

		outcomes := chunker.ProcessParallel(chunks, p.Workers, r.chunkFunc(p))
		merged, rep := chunker.Combine(outcomes, len(docs))
		report = rep

		if rep.ChunksFailed > 0 {
			fmt.Fprintf(r.out, "warning: %d/%d chunks failed; combined %d of %d documents\n",
				rep.ChunksFailed, rep.ChunksTotal, rep.CombinedDocs, rep.InputDocs)
		} else {
			fmt.Fprintf(r.out, "combined %d documents from %d chunks\n", rep.CombinedDocs, rep.ChunksTotal)
		}
		return LabeledCorpus{Dataset: p.Dataset, K: p.K, Docs: toRecords(merged)}, nil
	})
	return labeled, report, err
}

// chunkFunc builds the per-chunk pipeline: vectorize, pick k unless one
// was given, fit, assign. Each chunk derives its own seed from the
// global seed and its index so results do not depend on scheduling.
func (r *Runner) chunkFunc(p Params) chunker.ProcessFunc {
	return func(c chunker.Chunk) ([]corpus.Document, error) {
		seed := p.Seed*131 + int64(c.Index)

		space, valid, invalid, err := vectorspace.Build(c.Docs, p.Vector)
		if err != nil {
			return nil, err
		}

		k := p.K
		if k <= 0 {
			result, err := kselect.SelectK(space, kselect.Options{
				KMin:       p.KMin,
				KMax:       p.KMax,
				Strategy:   p.Strategy,
				SampleSize: p.SampleSize,
				Workers:    p.Workers,
				Seed:       seed,
			})
			if err != nil {
				return nil, err
			}
			k = result.BestK
		}

		model, err := kmeans.Fit(space, k, kmeans.Options{Seed: seed})
		if err != nil {
			return nil, err
		}
		return kmeans.Assign(model, space, valid, invalid)
	}
}

// The topic listing is ranked at fit time; readers slice it down to
// whatever display depth they want.
const topicTermDepth = 20

// LDA fits the topic model over the cleaned corpus.
func (r *Runner) LDA(p Params) (TopicModel, error) {
	return cache.GetOrCompute(r.cache, p.ldaKey(), func() (TopicModel, error) {
		cleaned, err := r.Cleaned(p, "lda")
		if err != nil {
			return TopicModel{}, err
		}
		tokens := make([][]string, len(cleaned.Docs))
		for i, d := range cleaned.Docs {
			tokens[i] = d.Tokens
		}
		model, err := lda.Fit(tokens, lda.Options{
			Topics:        p.Topics,
			MaxVocabulary: p.Vector.MaxVocabularySize,
			Seed:          p.Seed,
		})
		if err != nil {
			return TopicModel{}, err
		}
		fmt.Fprintf(r.out, "topic model %s: %d topics over %d terms\n",
			p.Dataset, model.Topics, len(model.Vocabulary))
		return TopicModel{Dataset: p.Dataset, Topics: model.Topics, Terms: model.TopTerms(topicTermDepth)}, nil
	})
}

// Sentiment scores the cleaned corpus with the keyword lexicon.
func (r *Runner) Sentiment(p Params) (SentimentScores, error) {
	return cache.GetOrCompute(r.cache, p.sentimentKey(), func() (SentimentScores, error) {
		cleaned, err := r.Cleaned(p, "sentiment")
		if err != nil {
			return SentimentScores{}, err
		}
		scorer := sentiment.NewScorer()
		scores := make([]float64, len(cleaned.Docs))
		for i, d := range cleaned.Docs {
			scores[i] = scorer.Score(d.Tokens)
		}
		fmt.Fprintf(r.out, "sentiment %s: scored %d documents (lexicon %s)\n",
			p.Dataset, len(scores), sentiment.LexiconVersion)
		return SentimentScores{Dataset: p.Dataset, Lexicon: sentiment.LexiconVersion, Scores: scores}, nil
	})
}

// Labeled returns the labeled-corpus artifact for an explicit or
// previously selected k, or a MissingStageError when clustering has not
// run yet. Used by the read-only commands (topics, stats).
func (r *Runner) Labeled(p Params, requested string) (LabeledCorpus, error) {
	k := p.K
	if k <= 0 {
		key := p.kselectKey()
		if !r.cache.Has(key) {
			return LabeledCorpus{}, &MissingStageError{Requested: requested, Missing: "cluster", Dataset: p.Dataset}
		}
		sweep, err := cache.Load[ScoreSweep](r.cache.Path(key))
		if err != nil {
			return LabeledCorpus{}, err
		}
		k = sweep.BestK
	}
	key := p.labeledKey(k)
	if !r.cache.Has(key) {
		return LabeledCorpus{}, &MissingStageError{Requested: requested, Missing: "cluster", Dataset: p.Dataset}
	}
	return cache.Load[LabeledCorpus](r.cache.Path(key))
}

// Sweep returns the kselect artifact if it exists.
func (r *Runner) Sweep(p Params) (ScoreSweep, bool) {
	key := p.kselectKey()
	if !r.cache.Has(key) {
		return ScoreSweep{}, false
	}
	sweep, err := cache.Load[ScoreSweep](r.cache.Path(key))
	if err != nil {
		return ScoreSweep{}, false
	}
	return sweep, true
}
