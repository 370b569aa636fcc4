package graph

import (
	"github.com/matzehuels/patchy/pkg/errors"
)

// Graph is a dense graph with per-node feature vectors and a weighted
// adjacency matrix. An adjacency entry of 0 means "no edge"; any non-zero
// value is an edge whose weight participates in neighborhood ranking.
//
// Graph values are treated as immutable by the pipeline: every stage reads
// them and produces new values. The zero value is a valid empty graph.
type Graph struct {
	// Features holds one feature vector per node, shaped [n][channels].
	Features [][]float64 `json:"features"`

	// Adjacency is the n×n weighted adjacency matrix. Only the first
	// adjacency channel of multi-channel sources is kept here; labeling and
	// assembly never look at additional channels.
	Adjacency [][]float64 `json:"adjacency"`
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.Adjacency)
}

// NumChannels returns the feature channel count, or 0 for an empty graph.
func (g *Graph) NumChannels() int {
	if len(g.Features) == 0 {
		return 0
	}
	return len(g.Features[0])
}

// Degree returns the number of neighbors of node i (non-zero adjacency
// entries in row i).
func (g *Graph) Degree(i int) int {
	d := 0
	for _, w := range g.Adjacency[i] {
		if w != 0 {
			d++
		}
	}
	return d
}

// Neighbors returns the indices of all nodes adjacent to i, in index order.
func (g *Graph) Neighbors(i int) []int {
	var ns []int
	for j, w := range g.Adjacency[i] {
		if w != 0 {
			ns = append(ns, j)
		}
	}
	return ns
}

// Validate checks the shape invariants required by the pipeline:
//
//   - the adjacency matrix is square
//   - the feature matrix has exactly one row per node
//   - all feature rows have the same channel count
//
// Violations are reported with code GRAPH_SHAPE.
func (g *Graph) Validate() error {
	n := len(g.Adjacency)
	for i, row := range g.Adjacency {
		if len(row) != n {
			return errors.New(errors.ErrCodeGraphShape,
				"adjacency not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if len(g.Features) != n {
		return errors.New(errors.ErrCodeGraphShape,
			"feature matrix has %d rows for %d nodes", len(g.Features), n)
	}
	channels := g.NumChannels()
	for i, row := range g.Features {
		if len(row) != channels {
			return errors.New(errors.ErrCodeGraphShape,
				"feature row %d has %d channels, want %d", i, len(row), channels)
		}
	}
	return nil
}

// Permute returns a new graph with nodes relabeled by perm, where perm[i] is
// the new index of node i. Features move with their nodes. Permuting a graph
// and assembling neighborhoods from it must canonicalize to the same table
// as the original; tests rely on this helper to verify that property.
func (g *Graph) Permute(perm []int) (*Graph, error) {
	n := g.NumNodes()
	if len(perm) != n {
		return nil, errors.New(errors.ErrCodeGraphShape,
			"permutation has %d entries for %d nodes", len(perm), n)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return nil, errors.New(errors.ErrCodeGraphShape, "invalid permutation entry %d", p)
		}
		seen[p] = true
	}

	out := &Graph{
		Features:  make([][]float64, n),
		Adjacency: make([][]float64, n),
	}
	for i := range out.Adjacency {
		out.Adjacency[i] = make([]float64, n)
	}
	for i, p := range perm {
		out.Features[p] = append([]float64(nil), g.Features[i]...)
		for j, w := range g.Adjacency[i] {
			out.Adjacency[p][perm[j]] = w
		}
	}
	return out, nil
}
