package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kevin6098/thesis-split/internal/cache"
	"github.com/Kevin6098/thesis-split/internal/corpus"
	"github.com/Kevin6098/thesis-split/internal/kselect"
)

// twelveRowCorpus writes a small review snapshot with two obvious topic
// groups (food vs service) and two rows that clean down to nothing.
func twelveRowCorpus(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,comment\n")
	food := []string{
		"delicious ramen rich broth",
		"ramen noodles delicious broth tasty",
		"rich tasty broth ramen bowl",
		"delicious bowl noodles tasty ramen",
		"broth noodles rich bowl delicious",
	}
	service := []string{
		"rude staff slow service waiting",
		"slow waiting staff service rude",
		"service staff waiting slow terrible",
		"terrible rude service staff waiting",
		"waiting slow terrible rude service",
	}
	rows := append(append([]string{}, food...), service...)
	rows = append(rows, "!!! ???", "12345")
	for i, text := range rows {
		fmt.Fprintf(&b, "r%d,%s\n", i, text)
	}

	path := filepath.Join(t.TempDir(), "reviews.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing corpus: %v", err)
	}
	return path
}

func testParams(t *testing.T, csvPath string) Params {
	t.Helper()
	p := Params{
		Dataset:    "reviews",
		CSVPath:    csvPath,
		IDColumn:   "id",
		TextColumn: "comment",
		KMin:       2,
		KMax:       4,
		Strategy:   kselect.Sampled,
		SampleSize: 12,
		Workers:    2,
		ChunkSize:  6,
		Seed:       42,
	}
	p.Vector.MinDocFrequency = 1
	return p
}

func newTestRunner(t *testing.T, force bool) *Runner {
	t.Helper()
	return NewRunner(cache.New(t.TempDir(), force), &bytes.Buffer{})
}

func TestCleanStage(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))

	cleaned, err := r.Clean(p)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned.Docs) != 12 {
		t.Fatalf("cleaned corpus has %d rows, want 12", len(cleaned.Docs))
	}
	empty := 0
	for _, d := range cleaned.Docs {
		if len(d.Tokens) == 0 {
			empty++
		}
	}
	if empty != 2 {
		t.Fatalf("%d rows cleaned to nothing, want 2", empty)
	}
}

func TestClusterEndToEnd(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	labeled, model, err := r.Cluster(p)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if model.K < 2 {
		t.Fatalf("model k = %d", model.K)
	}
	if len(labeled.Docs) != 12 {
		t.Fatalf("labeled corpus has %d rows, want 12", len(labeled.Docs))
	}

	for i, d := range labeled.Docs {
		if d.Position != i {
			t.Fatalf("row %d out of position: %+v", i, d)
		}
		if !d.Valid && d.Cluster != corpus.SentinelLabel {
			t.Fatalf("invalid row %s labeled %d, want sentinel", d.ID, d.Cluster)
		}
		if d.Valid && (d.Cluster < 0 || d.Cluster >= labeled.K) {
			t.Fatalf("valid row %s labeled %d with k=%d", d.ID, d.Cluster, labeled.K)
		}
	}

	// The two junk rows are the last two.
	if labeled.Docs[10].Cluster != corpus.SentinelLabel || labeled.Docs[11].Cluster != corpus.SentinelLabel {
		t.Fatal("junk rows not excluded")
	}

	// The food and service groups must not share a cluster.
	if labeled.Docs[0].Cluster == labeled.Docs[5].Cluster {
		t.Fatalf("food and service rows share cluster %d", labeled.Docs[0].Cluster)
	}
}

func TestClusterExplicitK(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))
	p.K = 2

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	labeled, model, err := r.Cluster(p)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if model.K != 2 || labeled.K != 2 {
		t.Fatalf("explicit k ignored: model %d, labeled %d", model.K, labeled.K)
	}
	// No sweep should exist; explicit k skips selection.
	if _, ok := r.Sweep(p); ok {
		t.Fatal("explicit k still ran the sweep")
	}
}

func TestMissingStage(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))

	_, err := r.Vectors(p)
	var missing *MissingStageError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStageError, got %v", err)
	}
	if missing.Missing != "clean" {
		t.Fatalf("missing stage = %q, want clean", missing.Missing)
	}
	if !strings.Contains(err.Error(), "run the clean stage first") {
		t.Fatalf("error not actionable: %v", err)
	}

	_, err = r.Labeled(p, "topics")
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStageError from Labeled, got %v", err)
	}
}

func TestClusterIsCached(t *testing.T) {
	dir := t.TempDir()
	p := testParams(t, twelveRowCorpus(t))

	r := NewRunner(cache.New(dir, false), &bytes.Buffer{})
	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	first, _, err := r.Cluster(p)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	// A fresh runner over the same cache must serve identical labels,
	// and a changed seed must not.
	again, _, err := NewRunner(cache.New(dir, false), &bytes.Buffer{}).Cluster(p)
	if err != nil {
		t.Fatalf("Cluster (cached): %v", err)
	}
	for i := range first.Docs {
		if first.Docs[i].Cluster != again.Docs[i].Cluster {
			t.Fatalf("cached run diverged at row %d", i)
		}
	}

	reseeded := p
	reseeded.Seed = 7
	if r.cache.Has(reseeded.kselectKey()) {
		t.Fatal("changed seed still hits the old sweep artifact")
	}
}

func TestSweepRecordsStrategy(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	sweep, err := r.SelectK(p)
	if err != nil {
		t.Fatalf("SelectK: %v", err)
	}
	if sweep.Strategy != "sampled" {
		t.Fatalf("sweep strategy = %q, want sampled", sweep.Strategy)
	}
	if sweep.Sampled != 10 {
		t.Fatalf("sweep scored %d rows, want all 10 valid rows", sweep.Sampled)
	}
}

func TestChunkedKeyTracksAllParams(t *testing.T) {
	p := testParams(t, twelveRowCorpus(t))
	base := p.chunkedKey().Fingerprint()

	// Every knob the per-chunk pipeline reads must move the key, the
	// vocabulary options included, or a stale artifact gets served.
	capped := p
	capped.Vector.MaxVocabularySize = 500
	if capped.chunkedKey().Fingerprint() == base {
		t.Fatal("chunked key unchanged after vocabulary cap changed")
	}

	rarer := p
	rarer.Vector.MinDocFrequency = 3
	if rarer.chunkedKey().Fingerprint() == base {
		t.Fatal("chunked key unchanged after min document frequency changed")
	}

	exact := p
	exact.Strategy = kselect.Exact
	if exact.chunkedKey().Fingerprint() == base {
		t.Fatal("chunked key unchanged after strategy changed")
	}
}

func TestChunkedEndToEnd(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))
	p.K = 2 // per-chunk selection over 6 rows is noisy; pin k

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	labeled, report, err := r.Chunked(p)
	if err != nil {
		t.Fatalf("Chunked: %v", err)
	}
	if report.ChunksTotal != 2 || report.ChunksFailed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(labeled.Docs) != 12 {
		t.Fatalf("combined corpus has %d rows, want 12", len(labeled.Docs))
	}
	for i, d := range labeled.Docs {
		if d.Position != i {
			t.Fatalf("row %d out of position after combine", i)
		}
	}
}

func TestChunkedAutoKHonorsStrategy(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))
	p.Strategy = kselect.Exact // per-chunk selection must run this, not a fixed variant

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	labeled, report, err := r.Chunked(p)
	if err != nil {
		t.Fatalf("Chunked: %v", err)
	}
	if report.ChunksFailed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(labeled.Docs) != 12 {
		t.Fatalf("combined corpus has %d rows, want 12", len(labeled.Docs))
	}
	for _, d := range labeled.Docs {
		if !d.Valid && d.Cluster != corpus.SentinelLabel {
			t.Fatalf("invalid row %s labeled %d", d.ID, d.Cluster)
		}
		if d.Valid && d.Cluster < 0 {
			t.Fatalf("valid row %s unlabeled", d.ID)
		}
	}
}

func TestLDAStage(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))
	p.Topics = 2

	_, err := r.LDA(p)
	var missing *MissingStageError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStageError before clean, got %v", err)
	}

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	model, err := r.LDA(p)
	if err != nil {
		t.Fatalf("LDA: %v", err)
	}
	if model.Topics != 2 || len(model.Terms) != 2 {
		t.Fatalf("topic model shape: topics=%d listings=%d", model.Topics, len(model.Terms))
	}
	named := 0
	for _, terms := range model.Terms {
		named += len(terms)
	}
	if named == 0 {
		t.Fatal("no topic carries any terms")
	}
}

func TestSentimentStage(t *testing.T) {
	r := newTestRunner(t, false)
	p := testParams(t, twelveRowCorpus(t))

	if _, err := r.Clean(p); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	scores, err := r.Sentiment(p)
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if len(scores.Scores) != 12 {
		t.Fatalf("scored %d rows, want 12", len(scores.Scores))
	}
	// Row 0 contains "delicious", "rich" is neutral; the score must be
	// positive. Row 5 is all negative vocabulary.
	if scores.Scores[0] <= 0 {
		t.Fatalf("food row scored %f, want > 0", scores.Scores[0])
	}
	if scores.Scores[5] >= 0 {
		t.Fatalf("service row scored %f, want < 0", scores.Scores[5])
	}
}
