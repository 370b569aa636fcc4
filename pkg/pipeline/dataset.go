package pipeline

import (
	"encoding/json"
	"os"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/graph"
)

// Example is one labeled input graph.
type Example struct {
	Graph *graph.Graph `json:"graph"`
	Label int          `json:"label"`
}

// Dataset is an ordered collection of labeled graphs. The runner sweeps a
// dataset front to back, so implementations must return a stable order.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// Example returns the example at position i.
	Example(i int) (*Example, error)
}

// =============================================================================
// Slice-backed dataset
// =============================================================================

// SliceDataset adapts an in-memory example slice to the Dataset interface.
type SliceDataset []Example

func (d SliceDataset) Len() int { return len(d) }

func (d SliceDataset) Example(i int) (*Example, error) {
	if i < 0 || i >= len(d) {
		return nil, errors.New(errors.ErrCodeNotFound, "example %d not in dataset (%d examples)", i, len(d))
	}
	return &d[i], nil
}

// ReadDatasetFile loads a JSON dataset file: an array of {graph, label}
// objects. Graph shapes are validated lazily by the runner, not here, so
// a file with one bad graph still yields the good examples.
func ReadDatasetFile(path string) (SliceDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "read dataset file")
	}
	var ds SliceDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphShape, "parse dataset file")
	}
	return ds, nil
}

// =============================================================================
// Image-backed dataset
// =============================================================================

// ImageDataset converts labeled images to grid graphs on access using a
// graph source. Pixels[i] is one H x W x C image.
type ImageDataset struct {
	Source graph.Source
	Pixels [][][][]float64
	Labels []int
}

func (d *ImageDataset) Len() int { return len(d.Pixels) }

func (d *ImageDataset) Example(i int) (*Example, error) {
	if i < 0 || i >= len(d.Pixels) {
		return nil, errors.New(errors.ErrCodeNotFound, "image %d not in dataset (%d images)", i, len(d.Pixels))
	}
	g, err := d.Source.Graph(d.Pixels[i])
	if err != nil {
		return nil, err
	}
	label := 0
	if i < len(d.Labels) {
		label = d.Labels[i]
	}
	return &Example{Graph: g, Label: label}, nil
}

var (
	_ Dataset = SliceDataset(nil)
	_ Dataset = (*ImageDataset)(nil)
)
