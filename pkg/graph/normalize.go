package graph

import "math"

// ScaleInvariant returns a copy of adj with every row divided by its maximum
// entry, so the strongest neighbor of each node carries weight 1. Rows whose
// maximum is 0 are left as all zeros. Note that this turns a symmetric
// adjacency into a directed one: row scaling is per source node.
func ScaleInvariant(adj [][]float64) [][]float64 {
	out := make([][]float64, len(adj))
	for i, row := range adj {
		max := 0.0
		for _, w := range row {
			if w > max {
				max = w
			}
		}
		out[i] = make([]float64, len(row))
		if max == 0 {
			continue
		}
		for j, w := range row {
			out[i][j] = w / max
		}
	}
	return out
}

// Gaussian returns a copy of adj with every non-zero weight w replaced by
// the gaussian density coef * exp(-w²/(2σ²)). Distance-valued adjacencies
// become similarity-valued ones: near neighbors get large weights. Zero
// entries stay zero, preserving the edge structure.
func Gaussian(adj [][]float64, sigma float64) [][]float64 {
	coef := 1 / math.Sqrt(2*math.Pi*sigma*sigma)
	out := make([][]float64, len(adj))
	for i, row := range adj {
		out[i] = make([]float64, len(row))
		for j, w := range row {
			if w == 0 {
				continue
			}
			out[i][j] = coef * math.Exp(-w*w/(2*sigma*sigma))
		}
	}
	return out
}
