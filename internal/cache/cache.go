// Package cache is the disk-backed, stage-keyed artifact store that
// makes every pipeline stage idempotent and resumable.
//
// An artifact's path is derived from its stage key: stage name, dataset
// slug, and a fingerprint over the declared stage parameters. Keying on
// the parameter tuple (not just names) means changing a knob computes a
// fresh artifact instead of silently serving a stale one. Artifacts are
// gob snapshots written to a same-directory temp file and renamed into
// place, so a crash mid-write never leaves a partial entry a later run
// would trust.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StageKey identifies one cache artifact.
type StageKey struct {
	Stage   string
	Dataset string
	Params  map[string]string
}

// Fingerprint hashes the declared parameters into a short stable hex
// string. Parameters are folded in sorted order so map iteration order
// cannot change the key.
func (k StageKey) Fingerprint() string {
	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s\n", name, k.Params[name])
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// Manager stores artifacts under root/<dataset>/<stage>-<fingerprint>.gob.
type Manager struct {
	root  string
	force bool
}

// New creates a Manager rooted at dir. When force is true every lookup
// misses, so stages recompute and overwrite their artifacts.
func New(dir string, force bool) *Manager {
	return &Manager{root: dir, force: force}
}

// Path returns the artifact location for a stage key.
func (m *Manager) Path(key StageKey) string {
	name := fmt.Sprintf("%s-%s.gob", key.Stage, key.Fingerprint())
	return filepath.Join(m.root, sanitize(key.Dataset), name)
}

// Has reports whether the artifact exists on disk. Existence is the
// hit criterion; no content verification is performed.
func (m *Manager) Has(key StageKey) bool {
	_, err := os.Stat(m.Path(key))
	return err == nil
}

// GetOrCompute loads the artifact for key if present, otherwise invokes
// compute, persists its result atomically, and returns it.
func GetOrCompute[T any](m *Manager, key StageKey, compute func() (T, error)) (T, error) {
	var zero T
	path := m.Path(key)

	if !m.force {
		if artifact, err := Load[T](path); err == nil {
			return artifact, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("loading cached %s artifact: %w", key.Stage, err)
		}
	}

	artifact, err := compute()
	if err != nil {
		return zero, err
	}
	if err := Save(path, artifact); err != nil {
		return zero, fmt.Errorf("persisting %s artifact: %w", key.Stage, err)
	}
	return artifact, nil
}

// Load decodes a gob artifact from path.
func Load[T any](path string) (T, error) {
	var artifact T
	f, err := os.Open(path)
	if err != nil {
		return artifact, err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&artifact); err != nil {
		return artifact, fmt.Errorf("decoding %s: %w", path, err)
	}
	return artifact, nil
}

// Save encodes an artifact to path via a same-directory temp file and
// rename, syncing before the swap.
func Save[T any](path string, artifact T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(artifact); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
