package pipeline

import (
	"context"

	"github.com/matzehuels/patchy/pkg/patchy"
	"github.com/matzehuels/patchy/pkg/store"
)

// Loader reads materialized records back and gathers them into
// fixed-shape tensors. It caches the store descriptor on creation so
// every read can zero-fill with the right channel count.
type Loader struct {
	store store.Store
	desc  store.Descriptor
}

// NewLoader opens a loader over a store that has been materialized.
// Fails with NOT_FOUND if no descriptor has been written yet.
func NewLoader(ctx context.Context, st store.Store) (*Loader, error) {
	desc, err := st.LoadDescriptor(ctx)
	if err != nil {
		return nil, err
	}
	return &Loader{store: st, desc: desc}, nil
}

// Descriptor returns the dataset descriptor the store was written with.
func (l *Loader) Descriptor() store.Descriptor {
	return l.desc
}

// Record reads the raw record at a position within a split.
func (l *Loader) Record(ctx context.Context, split string, index int) (*store.Record, error) {
	return l.store.Read(ctx, split, index)
}

// Tensor reads a record and gathers it into a [numNodes][size][channels]
// tensor, zero-filling absent cells. The record's label is returned
// alongside.
func (l *Loader) Tensor(ctx context.Context, split string, index int) ([][][]float64, int, error) {
	rec, err := l.store.Read(ctx, split, index)
	if err != nil {
		return nil, 0, err
	}
	return patchy.Gather(rec.Features, rec.Table, l.desc.NumChannels), rec.Label, nil
}

// Count returns the stored record count of a split, from its completed
// sweep info.
func (l *Loader) Count(ctx context.Context, split string) (int, error) {
	info, err := l.store.LoadInfo(ctx, split)
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

// ExamplesPerEpoch returns how many examples a consumer should draw per
// epoch: the smaller of the stored count and the requested epoch size.
func (l *Loader) ExamplesPerEpoch(ctx context.Context, split string, epochSize int) (int, error) {
	count, err := l.Count(ctx, split)
	if err != nil {
		return 0, err
	}
	if epochSize > 0 && epochSize < count {
		return epochSize, nil
	}
	return count, nil
}
