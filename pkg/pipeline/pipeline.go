// Package pipeline materializes datasets of labeled graphs into stored
// grid-shaped records.
//
// This package implements the complete label -> select -> assemble -> persist
// sweep that can be used by CLI, API, and library consumers. By centralizing
// this logic, behavior stays consistent across all entry points.
//
// # Architecture
//
// The pipeline consists of two halves:
//
//  1. Write: sweep a Dataset split by split, transform each graph into a
//     neighborhood table, and append (features, table, label) records to a
//     Store. Feature gathering is deferred to read time so stored records
//     stay proportional to graph size.
//  2. Read: the Loader reads records back by position and gathers them into
//     fixed-shape tensors using the stored descriptor.
//
// # Usage
//
// Materialize and read back:
//
//	runner := pipeline.NewRunner(st, logger)
//	opts := pipeline.Options{NumNodes: 100, NeighborhoodSize: 9}
//	results, err := runner.MaterializeAll(ctx, opts, trainSet, evalSet)
//
//	loader, err := pipeline.NewLoader(ctx, st)
//	tensor, label, err := loader.Tensor(ctx, store.SplitTrain, 0)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/patchy"
	"github.com/matzehuels/patchy/pkg/store"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Library
// =============================================================================

const (
	// DefaultNumNodes is the width of the output grid: how many root nodes
	// are selected per graph.
	DefaultNumNodes = 100

	// DefaultNodeStride is the step between selected roots in label order.
	DefaultNodeStride = 1

	// DefaultNeighborhoodSize is the receptive field size per root.
	DefaultNeighborhoodSize = 9

	// DefaultMaxNumEpochs is how many sweeps of the train split to write.
	DefaultMaxNumEpochs = 1
)

// DefaultLabeling is the default node labeling strategy.
const DefaultLabeling = "scanline"

// DefaultAssembly is the default neighborhood assembly variant.
const DefaultAssembly = "weights_to_root"

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a materialization run.
// This struct supports JSON serialization for API requests and TOML
// decoding for config files.
type Options struct {
	// Transform options
	NumNodes         int    `json:"num_nodes" toml:"num_nodes"`
	NodeStride       int    `json:"node_stride,omitempty" toml:"node_stride"`
	NeighborhoodSize int    `json:"neighborhood_size" toml:"neighborhood_size"`
	Labeling         string `json:"labeling,omitempty" toml:"labeling"`
	Assembly         string `json:"assembly,omitempty" toml:"assembly"`
	Workers          int    `json:"workers,omitempty" toml:"workers"`

	// Write options
	MaxNumEpochs  int   `json:"max_num_epochs,omitempty" toml:"max_num_epochs"`
	DistortInputs bool  `json:"distort_inputs,omitempty" toml:"distort_inputs"`
	Seed          int64 `json:"seed,omitempty" toml:"seed"`

	// Force rewrites splits that already exist in the store.
	Force bool `json:"force,omitempty" toml:"force"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// CustomRanks overrides Labeling with a caller-supplied strategy.
	CustomRanks patchy.RankFunc `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.NumNodes == 0 {
		o.NumNodes = DefaultNumNodes
	}
	if o.NodeStride == 0 {
		o.NodeStride = DefaultNodeStride
	}
	if o.NeighborhoodSize == 0 {
		o.NeighborhoodSize = DefaultNeighborhoodSize
	}
	if o.Labeling == "" {
		o.Labeling = DefaultLabeling
	}
	if o.Assembly == "" {
		o.Assembly = DefaultAssembly
	}
	if o.MaxNumEpochs == 0 {
		o.MaxNumEpochs = DefaultMaxNumEpochs
	}
	if o.MaxNumEpochs < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_num_epochs must be positive")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	// Strategy names must parse even though the transformer re-checks
	// them, so bad config fails before any records are written.
	if o.CustomRanks == nil {
		if _, err := patchy.ParseLabeling(o.Labeling); err != nil {
			return err
		}
	}
	if _, err := patchy.ParseAssembly(o.Assembly); err != nil {
		return err
	}

	cfg, err := o.transformerConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return err
	}

	o.validated = true
	return nil
}

// transformerConfig builds the core transform configuration.
func (o *Options) transformerConfig() (patchy.Config, error) {
	cfg := patchy.Config{
		NumNodes:         o.NumNodes,
		NodeStride:       o.NodeStride,
		NeighborhoodSize: o.NeighborhoodSize,
		CustomRanks:      o.CustomRanks,
		Workers:          o.Workers,
	}
	if o.CustomRanks == nil {
		labeling, err := patchy.ParseLabeling(o.Labeling)
		if err != nil {
			return cfg, err
		}
		cfg.Labeling = labeling
	}
	assembly, err := patchy.ParseAssembly(o.Assembly)
	if err != nil {
		return cfg, err
	}
	cfg.Assembly = assembly
	return cfg, nil
}

// Descriptor builds the dataset descriptor these options would produce.
// numChannels comes from the data, not the options, so it is passed in.
func (o *Options) Descriptor(numChannels int) store.Descriptor {
	labeling := o.Labeling
	if o.CustomRanks != nil {
		labeling = "custom"
	}
	return store.Descriptor{
		MaxNumEpochs:         o.MaxNumEpochs,
		DistortInputs:        o.DistortInputs,
		NodeLabeling:         labeling,
		NumNodes:             o.NumNodes,
		NumChannels:          numChannels,
		NodeStride:           o.NodeStride,
		NeighborhoodAssembly: o.Assembly,
		NeighborhoodSize:     o.NeighborhoodSize,
	}
}

// =============================================================================
// Results
// =============================================================================

// SplitResult describes one completed split sweep.
type SplitResult struct {
	Split    string
	Written  int
	Skipped  int
	Duration time.Duration

	// Reused is true when the split already existed and was left as is.
	Reused bool
}
