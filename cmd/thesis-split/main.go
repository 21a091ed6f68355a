package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Kevin6098/thesis-split/internal/cache"
	"github.com/Kevin6098/thesis-split/internal/config"
	"github.com/Kevin6098/thesis-split/internal/corpus"
	"github.com/Kevin6098/thesis-split/internal/kselect"
	"github.com/Kevin6098/thesis-split/internal/mcp"
	"github.com/Kevin6098/thesis-split/internal/pipeline"
	"github.com/Kevin6098/thesis-split/internal/store"
	"github.com/Kevin6098/thesis-split/internal/topics"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "clean":
		err = runClean(os.Args[2:])
	case "cluster":
		err = runCluster(os.Args[2:])
	case "chunked":
		err = runChunked(os.Args[2:])
	case "topics":
		err = runTopics(os.Args[2:])
	case "lda":
		err = runLda(os.Args[2:])
	case "sentiment":
		err = runSentiment(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("thesis-split %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the hand-parsed flags shared by the pipeline commands.
type cliFlags struct {
	set        string
	csvPath    string
	configPath string
	cacheDir   string
	dbPath     string
	force      bool

	k          int
	kMin       int
	kMax       int
	strategy   string
	sampleSize int
	workers    int
	chunkSize  int
	seed       int64
	top        int
	topics     int

	seedSet bool
}

func parseFlags(args []string) (cliFlags, error) {
	f := cliFlags{k: 0, top: 10, topics: 8}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		value := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("flag %s requires a value", arg)
			}
			return args[i], nil
		}
		intValue := func() (int, error) {
			v, err := value()
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("flag %s: %q is not an integer", arg, v)
			}
			return n, nil
		}

		var err error
		switch arg {
		case "--set", "-s":
			f.set, err = value()
		case "--csv":
			f.csvPath, err = value()
		case "--config":
			f.configPath, err = value()
		case "--cache-dir":
			f.cacheDir, err = value()
		case "--db":
			f.dbPath, err = value()
		case "--force", "-f":
			f.force = true
		case "--k":
			f.k, err = intValue()
		case "--k-min":
			f.kMin, err = intValue()
		case "--k-max":
			f.kMax, err = intValue()
		case "--strategy":
			f.strategy, err = value()
		case "--sample-size":
			f.sampleSize, err = intValue()
		case "--workers":
			f.workers, err = intValue()
		case "--chunk-size":
			f.chunkSize, err = intValue()
		case "--top":
			f.top, err = intValue()
		case "--topics":
			f.topics, err = intValue()
		case "--seed":
			var v string
			if v, err = value(); err == nil {
				f.seed, err = strconv.ParseInt(v, 10, 64)
				f.seedSet = err == nil
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return f, fmt.Errorf("unknown flag: %s", arg)
			}
			if f.set == "" {
				f.set = arg
			} else {
				return f, fmt.Errorf("unexpected argument: %s", arg)
			}
		}
		if err != nil {
			return f, err
		}
	}

	return f, nil
}

// setup resolves configuration and builds the cache-backed runner plus
// the stage parameters for the chosen dataset.
func setup(f cliFlags) (config.Config, *pipeline.Runner, pipeline.Params, error) {
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:  f.configPath,
		CLICacheDir: f.cacheDir,
		CLIDBPath:   f.dbPath,
	})
	if err != nil {
		return config.Config{}, nil, pipeline.Params{}, err
	}

	if f.set == "" {
		return cfg, nil, pipeline.Params{}, fmt.Errorf("no dataset specified; use --set <slug>")
	}

	csvPath := f.csvPath
	if csvPath == "" {
		csvPath, err = cfg.DatasetPath(f.set)
		if err != nil {
			return cfg, nil, pipeline.Params{}, err
		}
	}

	p := pipeline.Params{
		Dataset:    f.set,
		CSVPath:    csvPath,
		IDColumn:   cfg.IDColumn,
		TextColumn: cfg.TextColumn,

		Topics: f.topics,

		K:          f.k,
		KMin:       cfg.Defaults.KMin,
		KMax:       cfg.Defaults.KMax,
		Strategy:   kselect.Sampled,
		SampleSize: cfg.Defaults.SampleSize,
		Workers:    cfg.Defaults.Workers,
		ChunkSize:  cfg.Defaults.ChunkSize,
		Seed:       cfg.Defaults.Seed,

		ExtraStopwords: cfg.ExtraStopwords,
	}
	p.Vector.MaxVocabularySize = cfg.Defaults.MaxVocabulary
	p.Vector.MinDocFrequency = cfg.Defaults.MinDocFrequency
	p.Vector.MaxDocFrequencyRatio = cfg.Defaults.MaxDocFrequencyRatio

	if f.kMin > 0 {
		p.KMin = f.kMin
	}
	if f.kMax > 0 {
		p.KMax = f.kMax
	}
	if f.sampleSize > 0 {
		p.SampleSize = f.sampleSize
	}
	if f.workers > 0 {
		p.Workers = f.workers
	}
	if f.chunkSize > 0 {
		p.ChunkSize = f.chunkSize
	}
	if f.seedSet {
		p.Seed = f.seed
	}
	if f.strategy != "" {
		strategy, err := kselect.ParseStrategy(f.strategy)
		if err != nil {
			return cfg, nil, pipeline.Params{}, err
		}
		p.Strategy = strategy
	}

	mgr := cache.New(cfg.CacheDir.Value, f.force)
	return cfg, pipeline.NewRunner(mgr, os.Stdout), p, nil
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	return store.Open(ctx, cfg.DBPath.Value)
}

func runClean(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_, runner, p, err := setup(f)
	if err != nil {
		return err
	}
	_, err = runner.Clean(p)
	return err
}

func runCluster(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, runner, p, err := setup(f)
	if err != nil {
		return err
	}

	labeled, _, err := runner.Cluster(p)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.RecordRun(ctx, p.Dataset, "cluster", labeled.K, runParams(p))
	if err != nil {
		return err
	}
	if err := st.UpsertDocuments(ctx, p.Dataset, toStoreDocs(labeled)); err != nil {
		return err
	}
	if err := st.SaveClusterTerms(ctx, p.Dataset, summarizeTerms(labeled, f.top)); err != nil {
		return err
	}
	if sweep, ok := runner.Sweep(p); ok {
		if err := st.SaveSweep(ctx, p.Dataset, runID, sweep.Scores, sweep.BestK); err != nil {
			return err
		}
	}
	fmt.Printf("saved %d documents to %s (run %s)\n", len(labeled.Docs), cfg.DBPath.Value, runID)
	return nil
}

func runChunked(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, runner, p, err := setup(f)
	if err != nil {
		return err
	}

	labeled, _, err := runner.Chunked(p)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.RecordRun(ctx, p.Dataset, "chunked", labeled.K, runParams(p))
	if err != nil {
		return err
	}
	if err := st.UpsertDocuments(ctx, p.Dataset, toStoreDocs(labeled)); err != nil {
		return err
	}
	if err := st.SaveClusterTerms(ctx, p.Dataset, summarizeTerms(labeled, f.top)); err != nil {
		return err
	}
	fmt.Printf("saved %d documents to %s (run %s)\n", len(labeled.Docs), cfg.DBPath.Value, runID)
	return nil
}

func runTopics(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_, runner, p, err := setup(f)
	if err != nil {
		return err
	}

	labeled, err := runner.Labeled(p, "topics")
	if err != nil {
		return err
	}

	summaries := topics.Summarize(pipeline.Documents(labeled), f.top)
	for _, s := range summaries {
		if s.Cluster == corpus.SentinelLabel {
			fmt.Printf("excluded: %d documents\n", s.Documents)
			continue
		}
		terms := make([]string, 0, len(s.TopTerms))
		for _, t := range s.TopTerms {
			terms = append(terms, fmt.Sprintf("%s(%d)", t.Text, t.Count))
		}
		fmt.Printf("cluster %d (%d documents): %s\n", s.Cluster, s.Documents, strings.Join(terms, ", "))
	}
	return nil
}

func runLda(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_, runner, p, err := setup(f)
	if err != nil {
		return err
	}

	model, err := runner.LDA(p)
	if err != nil {
		return err
	}
	for t, terms := range model.Terms {
		if len(terms) > f.top {
			terms = terms[:f.top]
		}
		fmt.Printf("topic %d: %s\n", t, strings.Join(terms, ", "))
	}
	return nil
}

func runSentiment(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, runner, p, err := setup(f)
	if err != nil {
		return err
	}

	scores, err := runner.Sentiment(p)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.UpdateSentiment(ctx, p.Dataset, scores.Scores); err != nil {
		return err
	}
	if _, err := st.RecordRun(ctx, p.Dataset, "sentiment", 0, runParams(p)); err != nil {
		return err
	}
	fmt.Printf("stored sentiment for %d documents\n", len(scores.Scores))
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:  f.configPath,
		CLICacheDir: f.cacheDir,
		CLIDBPath:   f.dbPath,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if f.set == "" {
		datasets, err := st.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			fmt.Println("no datasets stored yet; run `thesis-split cluster --set <slug>` first")
			return nil
		}
		for _, d := range datasets {
			fmt.Println(d)
		}
		return nil
	}

	stats, err := st.Stats(ctx, f.set)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d documents (%d valid, %d excluded), %d clusters\n",
		f.set, stats.Documents, stats.Valid, stats.Invalid, stats.Clusters)

	sizes, err := st.ClusterSizes(ctx, f.set)
	if err != nil {
		return err
	}
	for _, cs := range sizes {
		if cs.Cluster == corpus.SentinelLabel {
			fmt.Printf("  excluded: %d\n", cs.Documents)
			continue
		}
		fmt.Printf("  cluster %d: %d\n", cs.Cluster, cs.Documents)
	}

	scores, bestK, err := st.LatestSweep(ctx, f.set)
	if err != nil {
		return err
	}
	if scores != nil {
		fmt.Printf("latest sweep (selected k=%d):\n", bestK)
		ks := make([]int, 0, len(scores))
		for k := range scores {
			ks = append(ks, k)
		}
		sort.Ints(ks)
		for _, k := range ks {
			fmt.Printf("  k=%2d  silhouette=%.4f\n", k, scores[k])
		}
	}

	runs, err := st.ListRuns(ctx, f.set, 5)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("recent runs:")
		for _, r := range runs {
			fmt.Printf("  %s  %s  k=%d  %s\n", r.ID, r.Stage, r.K, r.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runServe(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:  f.configPath,
		CLICacheDir: f.cacheDir,
		CLIDBPath:   f.dbPath,
	})
	if err != nil {
		return err
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(os.Stderr, "serving MCP over stdio (db: %s)\n", cfg.DBPath.Value)
	return mcp.ServeStdio(mcp.NewServer(mcp.ServerConfig{Store: st, Version: version}))
}

// runParams records the knobs that shaped a run, for the run log.
func runParams(p pipeline.Params) map[string]string {
	return map[string]string{
		"k":           strconv.Itoa(p.K),
		"k_min":       strconv.Itoa(p.KMin),
		"k_max":       strconv.Itoa(p.KMax),
		"strategy":    p.Strategy.String(),
		"sample_size": strconv.Itoa(p.SampleSize),
		"chunk_size":  strconv.Itoa(p.ChunkSize),
		"seed":        strconv.FormatInt(p.Seed, 10),
		"max_vocab":   strconv.Itoa(p.Vector.MaxVocabularySize),
	}
}

// summarizeTerms ranks each cluster's terms for the results database.
// The sentinel bucket carries no terms by construction.
func summarizeTerms(labeled pipeline.LabeledCorpus, topN int) []store.ClusterTerms {
	summaries := topics.Summarize(pipeline.Documents(labeled), topN)
	out := make([]store.ClusterTerms, 0, len(summaries))
	for _, s := range summaries {
		if s.Cluster == corpus.SentinelLabel {
			continue
		}
		terms := make([]store.TermCount, 0, len(s.TopTerms))
		for _, t := range s.TopTerms {
			terms = append(terms, store.TermCount{Term: t.Text, Count: t.Count})
		}
		out = append(out, store.ClusterTerms{Cluster: s.Cluster, Terms: terms})
	}
	return out
}

func toStoreDocs(labeled pipeline.LabeledCorpus) []store.Document {
	docs := make([]store.Document, 0, len(labeled.Docs))
	for _, d := range labeled.Docs {
		docs = append(docs, store.Document{
			ID:       d.ID,
			Position: d.Position,
			Text:     d.Text,
			Valid:    d.Valid,
			Cluster:  d.Cluster,
		})
	}
	return docs
}

func printUsage() {
	fmt.Printf(`thesis-split %s — review-corpus clustering pipeline

Usage:
  thesis-split <command> [arguments]

Commands:
  clean       Load a dataset CSV and cache the cleaned, tokenized corpus
  cluster     Vectorize, pick a cluster count, fit, and label the corpus
  chunked     Run the pipeline independently per chunk and combine results
  topics      Print top terms per cluster from the labeled corpus
  lda         Fit a topic model over the cleaned corpus and print topics
  sentiment   Score the corpus with the keyword lexicon and store results
  stats       Show stored results for a dataset (or list datasets)
  serve       Serve results over MCP stdio
  version     Print version

Common Flags:
  -s, --set <slug>      Dataset slug from the config file
      --csv <path>      Dataset CSV path (overrides the configured path)
      --config <path>   Config file (default ~/.thesis-split/config.yaml)
      --cache-dir <dir> Artifact cache directory
      --db <path>       Results database path
  -f, --force           Recompute stages even when cached

Pipeline Flags:
  --k <n>               Explicit cluster count (skips selection)
  --k-min / --k-max     Candidate cluster-count range (default 2..12)
  --strategy <name>     exact | sampled | fully-sampled | parallel
  --sample-size <n>     Documents scored per candidate (default 5000)
  --workers <n>         Parallel workers
  --chunk-size <n>      Documents per chunk (chunked command)
  --seed <n>            Random seed (default 42)
  --top <n>             Terms per cluster or topic (topics, lda commands)
  --topics <n>          Topic count for the lda command (default 8)

Environment:
  TSPLIT_CONFIG, TSPLIT_CACHE_DIR, TSPLIT_DB
`, version)
}
