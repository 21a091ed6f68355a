// Package corpus defines the document model shared by every pipeline stage.
//
// A corpus is an ordered list of review documents loaded from a tabular
// snapshot. Documents are never dropped: stages that cannot process a
// document (empty text after cleaning, no vectorizable tokens) mark it
// invalid and carry it through, so output row count always equals input
// row count and positional joins against external tables stay safe.
package corpus

import (
	"fmt"
	"sort"
)

// Document is one review row. Position is the zero-based index of the row
// in the originally loaded corpus and is the key used to restore global
// order after parallel processing.
type Document struct {
	ID       string
	Position int
	Text     string
	Tokens   []string
	Valid    bool
	Label    Label
}

// Partition splits documents into valid and invalid subsets, returning
// new labeled copies. A document is valid iff it has at least one cleaned
// token. Invalid documents are tagged with the unclustered label so the
// sentinel invariant holds before any model runs.
func Partition(docs []Document) (valid, invalid []Document) {
	valid = make([]Document, 0, len(docs))
	invalid = make([]Document, 0)
	for _, d := range docs {
		if len(d.Tokens) > 0 {
			d.Valid = true
			valid = append(valid, d)
			continue
		}
		d.Valid = false
		d.Label = Unclustered
		invalid = append(invalid, d)
	}
	return valid, invalid
}

// Merge recombines the valid and invalid subsets into original corpus
// order. Every original position must appear exactly once; anything else
// means a stage lost or duplicated rows and is reported as an error
// rather than papered over.
func Merge(valid, invalid []Document) ([]Document, error) {
	merged := make([]Document, 0, len(valid)+len(invalid))
	merged = append(merged, valid...)
	merged = append(merged, invalid...)

	sort.Slice(merged, func(i, j int) bool { return merged[i].Position < merged[j].Position })

	seen := make(map[int]struct{}, len(merged))
	for _, d := range merged {
		if _, dup := seen[d.Position]; dup {
			return nil, fmt.Errorf("merge: duplicate document at position %d (id %s)", d.Position, d.ID)
		}
		seen[d.Position] = struct{}{}
	}
	return merged, nil
}

// CheckLabels verifies the sentinel bijection: invalid documents carry
// the unclustered label and valid documents carry a cluster in [0, k).
func CheckLabels(docs []Document, k int) error {
	for _, d := range docs {
		cluster, clustered := d.Label.Cluster()
		if !d.Valid {
			if clustered {
				return fmt.Errorf("invalid document %s has cluster label %d", d.ID, cluster)
			}
			continue
		}
		if !clustered {
			return fmt.Errorf("valid document %s has no cluster label", d.ID)
		}
		if cluster < 0 || cluster >= k {
			return fmt.Errorf("document %s has out-of-range cluster %d (k=%d)", d.ID, cluster, k)
		}
	}
	return nil
}
