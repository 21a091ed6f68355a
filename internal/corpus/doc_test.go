package corpus

import "testing"

func doc(id string, pos int, tokens ...string) Document {
	return Document{ID: id, Position: pos, Text: id, Tokens: tokens}
}

func TestPartitionSplitsOnTokens(t *testing.T) {
	docs := []Document{
		doc("a", 0, "food", "good"),
		doc("b", 1),
		doc("c", 2, "slow"),
		doc("d", 3),
	}

	valid, invalid := Partition(docs)
	if len(valid) != 2 || len(invalid) != 2 {
		t.Fatalf("expected 2 valid and 2 invalid, got %d and %d", len(valid), len(invalid))
	}
	if valid[0].ID != "a" || valid[1].ID != "c" {
		t.Fatalf("valid subset out of order: %s, %s", valid[0].ID, valid[1].ID)
	}
	for _, d := range invalid {
		if d.Valid {
			t.Fatalf("invalid document %s marked valid", d.ID)
		}
		if _, clustered := d.Label.Cluster(); clustered {
			t.Fatalf("invalid document %s carries a cluster label", d.ID)
		}
	}
	// Input must be untouched.
	if docs[0].Valid || docs[1].Valid {
		t.Fatal("Partition mutated its input")
	}
}

func TestMergeRestoresOrder(t *testing.T) {
	valid := []Document{doc("c", 2, "x"), doc("a", 0, "x")}
	invalid := []Document{doc("b", 1), doc("d", 3)}

	merged, err := Merge(valid, invalid)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(merged))
	}
	for i, d := range merged {
		if d.Position != i {
			t.Fatalf("position %d holds document at position %d", i, d.Position)
		}
	}
}

func TestMergeRejectsDuplicates(t *testing.T) {
	valid := []Document{doc("a", 0, "x")}
	invalid := []Document{doc("b", 0)}
	if _, err := Merge(valid, invalid); err == nil {
		t.Fatal("expected duplicate-position error")
	}
}

func TestCheckLabels(t *testing.T) {
	good := []Document{
		{ID: "a", Valid: true, Label: Clustered(0)},
		{ID: "b", Valid: true, Label: Clustered(1)},
		{ID: "c", Valid: false, Label: Unclustered},
	}
	if err := CheckLabels(good, 2); err != nil {
		t.Fatalf("CheckLabels on valid corpus: %v", err)
	}

	cases := []struct {
		name string
		docs []Document
	}{
		{"invalid doc with cluster", []Document{{ID: "x", Valid: false, Label: Clustered(0)}}},
		{"valid doc without cluster", []Document{{ID: "x", Valid: true, Label: Unclustered}}},
		{"out of range cluster", []Document{{ID: "x", Valid: true, Label: Clustered(5)}}},
	}
	for _, tc := range cases {
		if err := CheckLabels(tc.docs, 2); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLabelSentinelRoundTrip(t *testing.T) {
	if Unclustered.Sentinel() != SentinelLabel {
		t.Fatalf("unclustered sentinel = %d", Unclustered.Sentinel())
	}
	if Clustered(3).Sentinel() != 3 {
		t.Fatalf("clustered sentinel = %d", Clustered(3).Sentinel())
	}
	if l := LabelFromSentinel(-1); l != Unclustered {
		t.Fatal("sentinel -1 did not widen to unclustered")
	}
	if c, ok := LabelFromSentinel(2).Cluster(); !ok || c != 2 {
		t.Fatalf("sentinel 2 widened to (%d, %v)", c, ok)
	}
	// Negative indices never smuggle a cluster.
	if _, ok := Clustered(-7).Cluster(); ok {
		t.Fatal("negative index produced a clustered label")
	}
}
