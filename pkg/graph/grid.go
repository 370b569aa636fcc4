package graph

import (
	"github.com/matzehuels/patchy/pkg/errors"
)

// Source converts a raw example (typically an image) into a graph.
// The pipeline only depends on this contract, not on any implementation.
type Source interface {
	// NumChannels returns the feature channel count of produced graphs.
	NumChannels() int

	// Graph builds the node features and adjacency for one example.
	Graph(pixels [][][]float64) (*Graph, error)
}

// GridSource converts images into grid graphs: one node per pixel in raster
// order, with features taken from the pixel channels and unit-weight edges
// to the 4-connected neighbors. It is the default Source for image datasets,
// matching scanline labeling which recovers raster order on its output.
type GridSource struct {
	// Channels is the expected channel count per pixel.
	Channels int
}

// NumChannels implements Source.
func (s GridSource) NumChannels() int { return s.Channels }

// Graph implements Source. pixels is shaped [height][width][channels].
func (s GridSource) Graph(pixels [][][]float64) (*Graph, error) {
	return Grid(pixels)
}

var _ Source = GridSource{}

// Grid builds a grid graph from an image shaped [height][width][channels].
// Node i corresponds to pixel (i/width, i%width); features are the channel
// values and edges connect 4-neighbors with weight 1.
//
// An empty image yields an empty graph. Ragged rows are rejected with a
// GRAPH_SHAPE error.
func Grid(pixels [][][]float64) (*Graph, error) {
	height := len(pixels)
	if height == 0 {
		return &Graph{}, nil
	}
	width := len(pixels[0])
	channels := 0
	if width > 0 {
		channels = len(pixels[0][0])
	}

	for y, row := range pixels {
		if len(row) != width {
			return nil, errors.New(errors.ErrCodeGraphShape,
				"image row %d has width %d, want %d", y, len(row), width)
		}
		for x, px := range row {
			if len(px) != channels {
				return nil, errors.New(errors.ErrCodeGraphShape,
					"pixel (%d,%d) has %d channels, want %d", y, x, len(px), channels)
			}
		}
	}

	n := height * width
	g := &Graph{
		Features:  make([][]float64, n),
		Adjacency: make([][]float64, n),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			g.Features[i] = append([]float64(nil), pixels[y][x]...)
			g.Adjacency[i] = make([]float64, n)
			if y > 0 {
				g.Adjacency[i][i-width] = 1
			}
			if y < height-1 {
				g.Adjacency[i][i+width] = 1
			}
			if x > 0 {
				g.Adjacency[i][i-1] = 1
			}
			if x < width-1 {
				g.Adjacency[i][i+1] = 1
			}
		}
	}
	return g, nil
}
