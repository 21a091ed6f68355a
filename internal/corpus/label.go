package corpus

// SentinelLabel is the persisted form of the unclustered label. It only
// appears at artifact and SQL boundaries; in-process code uses Label.
const SentinelLabel = -1

// Label identifies the cluster a document belongs to, or marks it as
// excluded from clustering. The zero value is the unclustered label.
type Label struct {
	cluster   int
	clustered bool
}

// Unclustered marks a document that carries no cluster assignment.
var Unclustered = Label{}

// Clustered wraps a non-negative cluster index as a label. Negative
// indices collapse to Unclustered rather than smuggling a bogus cluster.
func Clustered(cluster int) Label {
	if cluster < 0 {
		return Unclustered
	}
	return Label{cluster: cluster, clustered: true}
}

// Cluster returns the cluster index and whether the document is
// clustered at all.
func (l Label) Cluster() (int, bool) {
	return l.cluster, l.clustered
}

// Sentinel narrows the label to its persisted integer form: the cluster
// index for clustered documents, -1 otherwise.
func (l Label) Sentinel() int {
	if !l.clustered {
		return SentinelLabel
	}
	return l.cluster
}

// LabelFromSentinel widens a persisted integer label back into a Label.
func LabelFromSentinel(v int) Label {
	if v < 0 {
		return Unclustered
	}
	return Clustered(v)
}
