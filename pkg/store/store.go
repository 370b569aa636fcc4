// Package store persists materialized dataset records.
//
// This package defines the record store interface used by the pipeline,
// with implementations for different backends:
//   - file: Append-only JSONL files for CLI and local training
//   - redis: Redis lists for shared access across processes
//   - mongo: MongoDB collections for durable remote datasets
//
// # Architecture
//
// A store holds one list of records per dataset split ("train", "eval",
// "train_eval"). Records are appended in materialization order and read
// back by position, so any backend that supports indexed access works.
// Alongside the records, a store keeps two small metadata documents:
//   - SplitInfo: per-split record count, written after a sweep completes
//   - Descriptor: the parameters a dataset was materialized with
//
// The descriptor is how consumers detect stale datasets: before reusing
// stored records, compare the stored descriptor against the parameters
// you want with Descriptor.Matches.
//
// # Usage
//
// Create a store:
//
//	// CLI / local
//	st, err := store.NewFileStore("data/mnist")
//
//	// Shared
//	st, err := store.NewRedisStore(ctx, store.RedisConfig{
//	    Addr:   "localhost:6379",
//	    Prefix: "patchy:mnist",
//	})
//
// Write and read records:
//
//	err = st.Append(ctx, "train", &store.Record{Features: f, Table: tbl, Label: 7})
//	rec, err := st.Read(ctx, "train", 0)
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/patchy"
)

// Known dataset splits. Backends accept arbitrary split names, but the
// pipeline only ever writes these three.
const (
	SplitTrain     = "train"
	SplitEval      = "eval"
	SplitTrainEval = "train_eval"
)

// Record is one materialized example: the node features and neighborhood
// table of a transformed graph, plus its class label. Features are stored
// raw rather than gathered so the stored size stays proportional to the
// graph, not to num_nodes x size x channels.
type Record struct {
	Features [][]float64  `json:"features" bson:"features"`
	Table    patchy.Table `json:"table" bson:"table"`
	Label    int          `json:"label" bson:"label"`
}

// SplitInfo describes one completed split sweep.
type SplitInfo struct {
	Count int `json:"count" bson:"count"`
}

// Descriptor records the parameters a dataset was materialized with.
// It is written once per run and checked on reuse.
type Descriptor struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	MaxNumEpochs  int  `json:"max_num_epochs" bson:"max_num_epochs"`
	DistortInputs bool `json:"distort_inputs" bson:"distort_inputs"`

	NodeLabeling         string `json:"node_labeling" bson:"node_labeling"`
	NumNodes             int    `json:"num_nodes" bson:"num_nodes"`
	NumChannels          int    `json:"num_channels" bson:"num_channels"`
	NodeStride           int    `json:"node_stride" bson:"node_stride"`
	NeighborhoodAssembly string `json:"neighborhood_assembly" bson:"neighborhood_assembly"`
	NeighborhoodSize     int    `json:"neighborhood_size" bson:"neighborhood_size"`
}

// NewDescriptor stamps a descriptor with a fresh run ID and creation time.
func NewDescriptor(d Descriptor) Descriptor {
	d.RunID = uuid.NewString()
	d.CreatedAt = time.Now().UTC()
	return d
}

// Matches reports whether two descriptors describe the same dataset
// parameters. Run identity and timestamps are ignored.
func (d Descriptor) Matches(other Descriptor) bool {
	return d.MaxNumEpochs == other.MaxNumEpochs &&
		d.DistortInputs == other.DistortInputs &&
		d.NodeLabeling == other.NodeLabeling &&
		d.NumNodes == other.NumNodes &&
		d.NumChannels == other.NumChannels &&
		d.NodeStride == other.NodeStride &&
		d.NeighborhoodAssembly == other.NeighborhoodAssembly &&
		d.NeighborhoodSize == other.NeighborhoodSize
}

// Store is the interface for record storage backends.
//
// Read returns a RECORD_NOT_FOUND error for indexes outside the split.
// LoadInfo and LoadDescriptor return NOT_FOUND when the metadata has not
// been written yet.
type Store interface {
	// Append adds a record to the end of a split.
	Append(ctx context.Context, split string, rec *Record) error

	// Read retrieves the record at the given position within a split.
	Read(ctx context.Context, split string, index int) (*Record, error)

	// Count returns the number of records stored for a split.
	Count(ctx context.Context, split string) (int, error)

	// SaveInfo persists the completed-sweep metadata for a split.
	SaveInfo(ctx context.Context, split string, info SplitInfo) error

	// LoadInfo retrieves the completed-sweep metadata for a split.
	LoadInfo(ctx context.Context, split string) (SplitInfo, error)

	// Reset removes all records and metadata for a split.
	Reset(ctx context.Context, split string) error

	// SaveDescriptor persists the dataset descriptor.
	SaveDescriptor(ctx context.Context, d Descriptor) error

	// LoadDescriptor retrieves the dataset descriptor.
	LoadDescriptor(ctx context.Context) (Descriptor, error)

	// Close releases backend resources.
	Close() error
}

// notFound builds the shared NOT_FOUND error for missing metadata.
func notFound(what string) error {
	return errors.New(errors.ErrCodeNotFound, "%s not written yet", what)
}
