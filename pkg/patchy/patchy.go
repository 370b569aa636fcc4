package patchy

import (
	"sync"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/graph"
)

// Config holds the static parameters of the receptive field construction.
type Config struct {
	// NumNodes is the number of root nodes selected per graph. Required.
	NumNodes int

	// NodeStride is the step through the canonical order between selected
	// roots. Defaults to 1.
	NodeStride int

	// NeighborhoodSize is the number of slots per receptive field. Required.
	NeighborhoodSize int

	// Labeling selects the node labeling strategy.
	Labeling Labeling

	// CustomRanks overrides Labeling with a caller-supplied strategy when
	// non-nil. The descriptor then records the labeling name as "custom".
	CustomRanks RankFunc

	// Assembly selects the neighborhood assembly variant.
	Assembly Assembly

	// Workers bounds per-root parallelism inside one graph's assembly.
	// Roots are independent, so any value is safe; <= 1 means sequential.
	Workers int
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.NumNodes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"num nodes must be > 0, got %d", c.NumNodes)
	}
	if c.NodeStride == 0 {
		c.NodeStride = 1
	}
	if c.NodeStride < 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"node stride must be > 0, got %d", c.NodeStride)
	}
	if c.NeighborhoodSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"neighborhood size must be > 0, got %d", c.NeighborhoodSize)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// LabelingName returns the labeling strategy name recorded in descriptors.
func (c *Config) LabelingName() string {
	if c.CustomRanks != nil {
		return "custom"
	}
	return c.Labeling.String()
}

// ranks applies the configured labeling strategy.
func (c *Config) ranks(adj [][]float64) []float64 {
	if c.CustomRanks != nil {
		return c.CustomRanks(adj)
	}
	return c.Labeling.Ranks(adj)
}

// Result is the output of one per-graph transform: the graph's own feature
// matrix plus the neighborhood index table. Feature gathering is deferred
// to read time, so only these two parts are persisted.
type Result struct {
	Features [][]float64
	Table    Table
}

// Gather expands the result into the final fixed-shape feature tensor.
func (r *Result) Gather(channels int) [][][]float64 {
	return Gather(r.Features, r.Table, channels)
}

// Transformer applies the labeling -> selection -> assembly stages to one
// graph at a time. It is stateless after construction and safe for
// concurrent use.
type Transformer struct {
	cfg Config
}

// New validates cfg and returns a Transformer.
func New(cfg Config) (*Transformer, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Transformer{cfg: cfg}, nil
}

// Config returns the validated configuration.
func (t *Transformer) Config() Config { return t.cfg }

// Transform converts one graph into its fixed-shape result. It is a pure
// function of g: no state is shared across calls, which keeps dataset-level
// parallelization a concern of the caller.
//
// Shape violations in g are reported with code GRAPH_SHAPE.
func (t *Transformer) Transform(g *graph.Graph) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	ranks := t.cfg.ranks(g.Adjacency)
	seq, err := Select(ranks, t.cfg.NumNodes, t.cfg.NodeStride)
	if err != nil {
		return nil, err
	}

	var table Table
	if t.cfg.Workers > 1 {
		table, err = t.assembleParallel(g.Adjacency, seq)
	} else {
		table, err = t.cfg.Assembly.Assemble(g.Adjacency, seq, t.cfg.NeighborhoodSize)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Features: g.Features, Table: table}, nil
}

// assembleParallel fans the per-root assembly out over a bounded worker
// pool. Each worker reads only the shared adjacency and writes its own
// table rows, so no synchronization beyond the WaitGroup is needed.
func (t *Transformer) assembleParallel(adj [][]float64, seq Sequence) (Table, error) {
	size := t.cfg.NeighborhoodSize
	table := make(Table, len(seq))

	var wg sync.WaitGroup
	rows := make(chan int)
	for w := 0; w < t.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				table[i] = t.cfg.Assembly.Neighborhood(adj, seq[i], size)
			}
		}()
	}
	for i := range seq {
		rows <- i
	}
	close(rows)
	wg.Wait()

	return table, nil
}
