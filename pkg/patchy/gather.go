package patchy

import (
	"github.com/matzehuels/patchy/pkg/errors"
)

// Gather maps a neighborhood index table into a feature tensor shaped
// [len(table)][len(table[i])][channels]. Absent (negative) cells become
// all-zero vectors; valid cells are direct lookups into features. There is
// no normalization or interpolation.
//
// A positive index outside the feature matrix means an earlier stage broke
// the 0 <= idx < n invariant; that is a bug, not bad input, and Gather
// panics rather than papering over it.
func Gather(features [][]float64, table Table, channels int) [][][]float64 {
	out := make([][][]float64, len(table))
	for i, row := range table {
		out[i] = make([][]float64, len(row))
		for j, idx := range row {
			if idx < 0 {
				out[i][j] = make([]float64, channels)
				continue
			}
			if idx >= len(features) {
				panic(errors.New(errors.ErrCodeInternal,
					"table cell (%d,%d) references node %d, but graph has %d nodes",
					i, j, idx, len(features)))
			}
			out[i][j] = append([]float64(nil), features[idx]...)
		}
	}
	return out
}
