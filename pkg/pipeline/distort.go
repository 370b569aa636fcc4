package pipeline

import (
	"math/rand"

	"github.com/matzehuels/patchy/pkg/graph"
)

// Distortion magnitudes. The shift term moves all channels of a graph
// together (brightness-style) and the jitter term perturbs each value
// independently.
const (
	distortShiftStdDev  = 0.1
	distortJitterStdDev = 0.05
)

// Distort returns a copy of g with randomly perturbed node features.
// Structure is untouched: the adjacency matrix is shared with the input,
// so only the feature matrix is reallocated. Used when writing distorted
// train epochs so each pass over the data differs.
func Distort(rng *rand.Rand, g *graph.Graph) *graph.Graph {
	if g.NumNodes() == 0 {
		return g
	}
	shift := rng.NormFloat64() * distortShiftStdDev

	features := make([][]float64, len(g.Features))
	for i, row := range g.Features {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = v + shift + rng.NormFloat64()*distortJitterStdDev
		}
		features[i] = out
	}
	return &graph.Graph{Features: features, Adjacency: g.Adjacency}
}
