package patchy

import (
	"sort"

	"github.com/matzehuels/patchy/pkg/errors"
)

// Assembly selects the neighborhood assembly variant: how candidates found
// by the breadth-first expansion are ranked before truncation. Both
// variants keep the root first and break remaining ties by node index, so
// output is deterministic for identical input.
type Assembly int

const (
	// AssemblyWeightsToRoot ranks candidates purely by their accumulated
	// edge weight to the root along the discovery path. The default,
	// matching the original weights-to-root assembly.
	AssemblyWeightsToRoot Assembly = iota

	// AssemblyDistance ranks candidates by BFS depth first and accumulated
	// weight second, preferring hop-count proximity over edge weight.
	AssemblyDistance
)

// assemblyNames maps variants to their configuration names. These names are
// persisted in the pipeline descriptor, so they must stay stable.
var assemblyNames = map[Assembly]string{
	AssemblyWeightsToRoot: "weights_to_root",
	AssemblyDistance:      "distance",
}

// String returns the configuration name of the variant.
func (a Assembly) String() string {
	if name, ok := assemblyNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAssembly converts a configuration name into an Assembly.
func ParseAssembly(name string) (Assembly, error) {
	for a, n := range assemblyNames {
		if n == name {
			return a, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidStrategy,
		"unknown neighborhood assembly %q (must be one of: weights_to_root, distance)", name)
}

// Table is the neighborhood index grid, shaped [numNodes][neighborhoodSize].
// Row i holds the canonicalized neighborhood of sequence entry i; cells are
// node indices or [Absent]. Rows of absent roots are entirely Absent.
type Table [][]int

// candidate is one node reached by the breadth-first expansion.
type candidate struct {
	idx    int
	depth  int     // BFS layer the node was discovered in (0 = root)
	weight float64 // minimal accumulated edge weight to the root
}

// Assemble builds the neighborhood table for every root in seq.
// size must be positive.
func (a Assembly) Assemble(adj [][]float64, seq Sequence, size int) (Table, error) {
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"neighborhood size must be > 0, got %d", size)
	}
	table := make(Table, len(seq))
	for i, root := range seq {
		table[i] = a.Neighborhood(adj, root, size)
	}
	return table, nil
}

// Neighborhood builds one canonicalized neighborhood row of exactly size
// entries around root. An Absent root yields an all-Absent row. The row
// always starts with the root itself, followed by the size-1 structurally
// closest nodes under the variant's ranking; missing slots are Absent.
//
// root must be Absent or a valid index into adj; anything else is a bug in
// the caller and panics.
func (a Assembly) Neighborhood(adj [][]float64, root, size int) []int {
	row := make([]int, size)
	for i := range row {
		row[i] = Absent
	}
	if root == Absent {
		return row
	}
	if root < 0 || root >= len(adj) {
		panic(errors.New(errors.ErrCodeInternal,
			"neighborhood root %d outside graph of %d nodes", root, len(adj)))
	}

	cands := a.expand(adj, root, size)
	a.canonicalize(cands)

	for i := 0; i < len(cands) && i < size; i++ {
		row[i] = cands[i].idx
	}
	return row
}

// expand grows the neighborhood layer by layer until the frontier is
// exhausted or at least size candidates have been collected. When a node is
// reachable from several frontier nodes, it keeps the minimal accumulated
// weight, so discovery is independent of node numbering.
func (a Assembly) expand(adj [][]float64, root, size int) []candidate {
	visited := make([]bool, len(adj))
	visited[root] = true
	weightTo := make([]float64, len(adj))
	cands := []candidate{{idx: root}}
	frontier := []int{root}

	for depth := 1; len(frontier) > 0 && len(cands) < size; depth++ {
		discovered := make(map[int]float64)
		for _, u := range frontier {
			for v, w := range adj[u] {
				if w == 0 || visited[v] {
					continue
				}
				acc := weightTo[u] + w
				if prev, ok := discovered[v]; !ok || acc < prev {
					discovered[v] = acc
				}
			}
		}

		next := make([]int, 0, len(discovered))
		for v := range discovered {
			next = append(next, v)
		}
		sort.Ints(next)

		for _, v := range next {
			visited[v] = true
			weightTo[v] = discovered[v]
			cands = append(cands, candidate{idx: v, depth: depth, weight: discovered[v]})
		}
		frontier = next
	}
	return cands
}

// canonicalize sorts everything after the pinned root slot by the variant's
// ranking with an index tie-break. This is what maps differently-numbered
// but structurally-equivalent neighborhoods onto the same normalized row.
func (a Assembly) canonicalize(cands []candidate) {
	if len(cands) < 2 {
		return
	}
	rest := cands[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		x, y := rest[i], rest[j]
		if a == AssemblyDistance && x.depth != y.depth {
			return x.depth < y.depth
		}
		if x.weight != y.weight {
			return x.weight < y.weight
		}
		return x.idx < y.idx
	})
}
