package patchy

import (
	"sort"

	"github.com/matzehuels/patchy/pkg/errors"
)

// Labeling selects the node labeling strategy: how each node is assigned an
// orderable rank before sequence selection. The set of strategies is closed;
// use [Config.CustomRanks] for anything not covered here.
type Labeling int

const (
	// LabelingScanline ranks nodes by their index. For grid graphs built
	// from images this is raster (scanline) order, the default when no
	// domain-specific importance ranking is available.
	LabelingScanline Labeling = iota

	// LabelingDegree ranks nodes by descending degree, so well-connected
	// nodes come first in the canonical order. A simple centrality measure
	// for general graphs.
	LabelingDegree
)

// labelingNames maps strategies to their configuration names. These names
// are persisted in the pipeline descriptor, so they must stay stable.
var labelingNames = map[Labeling]string{
	LabelingScanline: "scanline",
	LabelingDegree:   "degree",
}

// String returns the configuration name of the strategy.
func (l Labeling) String() string {
	if name, ok := labelingNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLabeling converts a configuration name into a Labeling.
func ParseLabeling(name string) (Labeling, error) {
	for l, n := range labelingNames {
		if n == name {
			return l, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidStrategy,
		"unknown node labeling %q (must be one of: scanline, degree)", name)
}

// RankFunc computes one rank per node from an adjacency matrix, in node
// index order. Only the relative order of ranks matters downstream; ties
// are always broken by node index.
type RankFunc func(adj [][]float64) []float64

// Ranks computes the ranks for the given adjacency matrix.
// An empty graph yields an empty ranking.
func (l Labeling) Ranks(adj [][]float64) []float64 {
	switch l {
	case LabelingDegree:
		return degreeRanks(adj)
	default:
		return scanlineRanks(adj)
	}
}

// Func returns the strategy as a RankFunc.
func (l Labeling) Func() RankFunc {
	return l.Ranks
}

func scanlineRanks(adj [][]float64) []float64 {
	ranks := make([]float64, len(adj))
	for i := range ranks {
		ranks[i] = float64(i)
	}
	return ranks
}

func degreeRanks(adj [][]float64) []float64 {
	ranks := make([]float64, len(adj))
	for i, row := range adj {
		degree := 0
		for _, w := range row {
			if w != 0 {
				degree++
			}
		}
		ranks[i] = -float64(degree)
	}
	return ranks
}

// Order returns node indices sorted into the canonical order implied by
// ranks: ascending by (rank, index). The sort is stable and deterministic
// for identical input.
func Order(ranks []float64) []int {
	order := make([]int, len(ranks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if ranks[order[a]] != ranks[order[b]] {
			return ranks[order[a]] < ranks[order[b]]
		}
		return order[a] < order[b]
	})
	return order
}
