package kselect

import "fmt"

// Strategy selects how trial models are fitted and scored during the k
// sweep. Strategies are mutually exclusive, never stacked.
type Strategy int

const (
	// Exact fits and scores every candidate on the full valid set.
	Exact Strategy = iota
	// Sampled fits on the full set, scores on one seeded sample.
	Sampled
	// FullySampled draws one seeded sample and both fits and scores
	// every candidate on it.
	FullySampled
	// Parallel evaluates candidates like Sampled, one worker per k.
	// Scores are identical to Sampled for the same seed.
	Parallel
)

var strategyNames = map[Strategy]string{
	Exact:        "exact",
	Sampled:      "sampled",
	FullySampled: "fully-sampled",
	Parallel:     "parallel",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a CLI/config spelling to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return Exact, fmt.Errorf("unknown k-selection strategy %q (want exact, sampled, fully-sampled, or parallel)", name)
}
