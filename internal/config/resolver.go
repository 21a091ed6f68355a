// Package config resolves pipeline configuration from a YAML file,
// environment variables, and CLI flags, in that precedence order.
// Every resolved path remembers where its value came from so `stats`
// can show an operator exactly which knob won.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownDataset is returned when a dataset slug has no entry in the
// config's datasets map.
var ErrUnknownDataset = errors.New("unknown dataset")

// ValueSource names where a resolved value came from.
type ValueSource string

const (
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Defaults are the pipeline knobs applied when a command does not
// override them.
type Defaults struct {
	Seed                 int64   `yaml:"seed"`
	KMin                 int     `yaml:"k_min"`
	KMax                 int     `yaml:"k_max"`
	SampleSize           int     `yaml:"sample_size"`
	Workers              int     `yaml:"workers"`
	ChunkSize            int     `yaml:"chunk_size"`
	MaxVocabulary        int     `yaml:"max_vocabulary"`
	MinDocFrequency      int     `yaml:"min_doc_frequency"`
	MaxDocFrequencyRatio float64 `yaml:"max_doc_frequency_ratio"`
}

// Config is the fully resolved configuration.
type Config struct {
	ConfigPath string

	CacheDir ResolvedValue
	DBPath   ResolvedValue

	IDColumn   string
	TextColumn string

	Datasets       map[string]string
	Defaults       Defaults
	ExtraStopwords []string
}

type fileConfig struct {
	CacheDir   string            `yaml:"cache_dir"`
	DBPath     string            `yaml:"db_path"`
	IDColumn   string            `yaml:"id_column"`
	TextColumn string            `yaml:"text_column"`
	Datasets   map[string]string `yaml:"datasets"`
	Defaults   Defaults          `yaml:"defaults"`
	Cleaning   struct {
		ExtraStopwords []string `yaml:"extra_stopwords"`
	} `yaml:"cleaning"`
}

// ResolveOptions carries the CLI-level overrides.
type ResolveOptions struct {
	ConfigPath  string
	CLICacheDir string
	CLIDBPath   string
}

// DefaultConfigPath is ~/.thesis-split/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".thesis-split", "config.yaml")
}

// Resolve loads the config file (if any) and applies env and CLI
// overrides. A missing file is not an error; built-in defaults apply.
func Resolve(opts ResolveOptions) (Config, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("TSPLIT_CONFIG"))
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	home, _ := os.UserHomeDir()
	out := Config{
		ConfigPath: path,
		CacheDir:   ResolvedValue{Value: filepath.Join(home, ".thesis-split", "cache"), Source: SourceDefault, From: "built-in default"},
		DBPath:     ResolvedValue{Value: filepath.Join(home, ".thesis-split", "reviews.db"), Source: SourceDefault, From: "built-in default"},
		IDColumn:   "id",
		TextColumn: "comment",
		Datasets:   map[string]string{},
		Defaults: Defaults{
			Seed:                 42,
			KMin:                 2,
			KMax:                 12,
			SampleSize:           5000,
			ChunkSize:            10000,
			MaxVocabulary:        20000,
			MinDocFrequency:      2,
			MaxDocFrequencyRatio: 0.95,
		},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.CacheDir, cfg.CacheDir, SourceConfig, path)
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		if strings.TrimSpace(cfg.IDColumn) != "" {
			out.IDColumn = cfg.IDColumn
		}
		if strings.TrimSpace(cfg.TextColumn) != "" {
			out.TextColumn = cfg.TextColumn
		}
		for slug, p := range cfg.Datasets {
			out.Datasets[slug] = expandUserPath(p)
		}
		mergeDefaults(&out.Defaults, cfg.Defaults)
		out.ExtraStopwords = cfg.Cleaning.ExtraStopwords
	}

	applyEnv(&out.CacheDir, "TSPLIT_CACHE_DIR")
	applyEnv(&out.DBPath, "TSPLIT_DB")

	apply(&out.CacheDir, opts.CLICacheDir, SourceCLI, "--cache-dir")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")

	out.CacheDir.Value = expandUserPath(out.CacheDir.Value)
	out.DBPath.Value = expandUserPath(out.DBPath.Value)
	return out, nil
}

// DatasetPath maps a slug to its corpus file, listing the known slugs
// in the error when the lookup fails.
func (c Config) DatasetPath(slug string) (string, error) {
	if path, ok := c.Datasets[slug]; ok {
		return path, nil
	}
	known := make([]string, 0, len(c.Datasets))
	for s := range c.Datasets {
		known = append(known, s)
	}
	sort.Strings(known)
	return "", fmt.Errorf("%w %q (configured: %s)", ErrUnknownDataset, slug, strings.Join(known, ", "))
}

func mergeDefaults(dst *Defaults, src Defaults) {
	if src.Seed != 0 {
		dst.Seed = src.Seed
	}
	if src.KMin > 0 {
		dst.KMin = src.KMin
	}
	if src.KMax > 0 {
		dst.KMax = src.KMax
	}
	if src.SampleSize > 0 {
		dst.SampleSize = src.SampleSize
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.ChunkSize > 0 {
		dst.ChunkSize = src.ChunkSize
	}
	if src.MaxVocabulary > 0 {
		dst.MaxVocabulary = src.MaxVocabulary
	}
	if src.MinDocFrequency > 0 {
		dst.MinDocFrequency = src.MinDocFrequency
	}
	if src.MaxDocFrequencyRatio > 0 {
		dst.MaxDocFrequencyRatio = src.MaxDocFrequencyRatio
	}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
