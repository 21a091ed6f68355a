// Package store persists clustering results in a single SQLite file:
// the labeled corpus, validity-score sweeps, sentiment scores, and a
// run log. It is the query surface behind the stats command and the
// MCP server; pipeline artifacts themselves live in the cache, not
// here.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Document is one labeled corpus row as persisted. Cluster uses the
// sentinel form: -1 marks a document excluded from clustering.
type Document struct {
	ID        string
	Position  int
	Text      string
	Valid     bool
	Cluster   int
	Sentiment float64
}

// ClusterSize is one cluster's population.
type ClusterSize struct {
	Cluster   int
	Documents int
}

// TermCount is one ranked cluster keyword.
type TermCount struct {
	Term  string
	Count int
}

// ClusterTerms is one cluster's ranked keyword list.
type ClusterTerms struct {
	Cluster int
	Terms   []TermCount
}

// DatasetStats summarizes one dataset's stored results.
type DatasetStats struct {
	Documents int
	Valid     int
	Invalid   int
	Clusters  int
}

// Run is one recorded pipeline run.
type Run struct {
	ID        string
	Dataset   string
	Stage     string
	K         int
	Params    map[string]string
	CreatedAt time.Time
}

// Store wraps the SQLite handle.
type Store struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating if needed) the results database with WAL mode
// and the schema in place.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results db %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB exposes the raw handle for read-only query surfaces.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			dataset    TEXT NOT NULL,
			stage      TEXT NOT NULL,
			k          INTEGER NOT NULL DEFAULT 0,
			params     TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS documents (
			dataset   TEXT NOT NULL,
			doc_id    TEXT NOT NULL,
			position  INTEGER NOT NULL,
			text      TEXT NOT NULL DEFAULT '',
			valid     INTEGER NOT NULL,
			cluster   INTEGER NOT NULL,
			sentiment REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset, position)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_cluster ON documents(dataset, cluster);
		CREATE TABLE IF NOT EXISTS sweep_scores (
			dataset TEXT NOT NULL,
			run_id  TEXT NOT NULL,
			k       INTEGER NOT NULL,
			score   REAL NOT NULL,
			best    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset, run_id, k)
		);
		CREATE TABLE IF NOT EXISTS cluster_terms (
			dataset TEXT NOT NULL,
			cluster INTEGER NOT NULL,
			rank    INTEGER NOT NULL,
			term    TEXT NOT NULL,
			count   INTEGER NOT NULL,
			PRIMARY KEY (dataset, cluster, rank)
		);
	`)
	return err
}

// RecordRun logs one pipeline run and returns its ULID.
func (s *Store) RecordRun(ctx context.Context, dataset, stage string, k int, params map[string]string) (string, error) {
	id := ulid.MustNew(ulid.Now(), s.entropy).String()
	blob, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, stage, k, params, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, dataset, stage, k, string(blob), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("recording %s run: %w", stage, err)
	}
	return id, nil
}

// UpsertDocuments replaces the stored rows for a dataset with the given
// labeled documents, inside one transaction.
func (s *Store) UpsertDocuments(ctx context.Context, dataset string, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE dataset = ?`, dataset); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (dataset, doc_id, position, text, valid, cluster, sentiment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		valid := 0
		if d.Valid {
			valid = 1
		}
		if _, err := stmt.ExecContext(ctx, dataset, d.ID, d.Position, d.Text, valid, d.Cluster, d.Sentiment); err != nil {
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateSentiment sets sentiment scores by corpus position.
func (s *Store) UpdateSentiment(ctx context.Context, dataset string, scores []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE documents SET sentiment = ? WHERE dataset = ? AND position = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, score := range scores {
		if _, err := stmt.ExecContext(ctx, score, dataset, pos); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveSweep stores a score sweep under a run id, flagging the chosen k.
func (s *Store) SaveSweep(ctx context.Context, dataset, runID string, scores map[int]float64, bestK int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, score := range scores {
		best := 0
		if k == bestK {
			best = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sweep_scores (dataset, run_id, k, score, best) VALUES (?, ?, ?, ?, ?)`,
			dataset, runID, k, score, best); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveClusterTerms replaces the stored keyword rankings for a dataset.
func (s *Store) SaveClusterTerms(ctx context.Context, dataset string, clusters []ClusterTerms) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_terms WHERE dataset = ?`, dataset); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cluster_terms (dataset, cluster, rank, term, count)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range clusters {
		for rank, t := range c.Terms {
			if _, err := stmt.ExecContext(ctx, dataset, c.Cluster, rank, t.Term, t.Count); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// TopTerms returns one cluster's stored keyword ranking.
func (s *Store) TopTerms(ctx context.Context, dataset string, cluster, limit int) ([]TermCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count FROM cluster_terms
		WHERE dataset = ? AND cluster = ? ORDER BY rank LIMIT ?`, dataset, cluster, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var t TermCount
		if err := rows.Scan(&t.Term, &t.Count); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// Stats summarizes a dataset's stored rows.
func (s *Store) Stats(ctx context.Context, dataset string) (DatasetStats, error) {
	var st DatasetStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(valid), 0),
		       COUNT(*) - COALESCE(SUM(valid), 0),
		       COUNT(DISTINCT CASE WHEN cluster >= 0 THEN cluster END)
		FROM documents WHERE dataset = ?`, dataset).
		Scan(&st.Documents, &st.Valid, &st.Invalid, &st.Clusters)
	if err != nil {
		return st, fmt.Errorf("querying stats for %s: %w", dataset, err)
	}
	return st, nil
}

// ClusterSizes returns per-cluster populations including the sentinel
// bucket, ordered by cluster.
func (s *Store) ClusterSizes(ctx context.Context, dataset string) ([]ClusterSize, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster, COUNT(*) FROM documents
		WHERE dataset = ? GROUP BY cluster ORDER BY cluster`, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sizes []ClusterSize
	for rows.Next() {
		var cs ClusterSize
		if err := rows.Scan(&cs.Cluster, &cs.Documents); err != nil {
			return nil, err
		}
		sizes = append(sizes, cs)
	}
	return sizes, rows.Err()
}

// SampleDocuments returns up to limit documents from one cluster in
// corpus order.
func (s *Store) SampleDocuments(ctx context.Context, dataset string, cluster, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, position, text, valid, cluster, sentiment FROM documents
		WHERE dataset = ? AND cluster = ? ORDER BY position LIMIT ?`, dataset, cluster, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var valid int
		if err := rows.Scan(&d.ID, &d.Position, &d.Text, &valid, &d.Cluster, &d.Sentiment); err != nil {
			return nil, err
		}
		d.Valid = valid != 0
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// LatestSweep returns the most recently recorded sweep for a dataset.
// A nil map with no error means no sweep has been stored yet.
func (s *Store) LatestSweep(ctx context.Context, dataset string) (map[int]float64, int, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id FROM sweep_scores WHERE dataset = ?
		ORDER BY run_id DESC LIMIT 1`, dataset).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT k, score, best FROM sweep_scores
		WHERE dataset = ? AND run_id = ? ORDER BY k`, dataset, runID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	scores := make(map[int]float64)
	bestK := 0
	for rows.Next() {
		var k, best int
		var score float64
		if err := rows.Scan(&k, &score, &best); err != nil {
			return nil, 0, err
		}
		scores[k] = score
		if best == 1 {
			bestK = k
		}
	}
	return scores, bestK, rows.Err()
}

// ListRuns returns a dataset's recorded runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, dataset string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset, stage, k, params, created_at FROM runs
		WHERE dataset = ? ORDER BY id DESC LIMIT ?`, dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var blob, created string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Stage, &r.K, &blob, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &r.Params); err != nil {
			return nil, fmt.Errorf("decoding params for run %s: %w", r.ID, err)
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			r.CreatedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListDatasets returns the slugs with stored documents.
func (s *Store) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT dataset FROM documents ORDER BY dataset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}
