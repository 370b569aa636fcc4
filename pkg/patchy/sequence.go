package patchy

import (
	"github.com/matzehuels/patchy/pkg/errors"
)

// Absent marks an empty slot in a [Sequence] or [Table]: the graph had no
// node for that position. The value -1 is the on-wire representation used
// by persisted records; all code paths should compare against Absent rather
// than a literal.
const Absent = -1

// Sequence is a fixed-length list of selected root node indices. Every
// entry is either a valid node index or [Absent]. Its length is always
// exactly the configured NumNodes, independent of graph size.
type Sequence []int

// NumPresent returns the number of non-absent entries.
func (s Sequence) NumPresent() int {
	count := 0
	for _, idx := range s {
		if idx != Absent {
			count++
		}
	}
	return count
}

// Select picks exactly numNodes representative nodes from the canonical
// order implied by ranks, stepping by stride. If the order is exhausted
// before numNodes entries are collected, the remaining slots are Absent.
// Nodes beyond the walk are dropped, never sampled.
//
// stride must be positive; numNodes <= 0 yields an empty sequence.
func Select(ranks []float64, numNodes, stride int) (Sequence, error) {
	if stride <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"node stride must be > 0, got %d", stride)
	}
	if numNodes <= 0 {
		return Sequence{}, nil
	}

	order := Order(ranks)
	seq := make(Sequence, numNodes)
	for i := range seq {
		pos := i * stride
		if pos < len(order) {
			seq[i] = order[pos]
		} else {
			seq[i] = Absent
		}
	}
	return seq, nil
}
