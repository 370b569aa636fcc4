package pipeline

import (
	"context"
	"math/rand"
	"testing"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/graph"
	"github.com/matzehuels/patchy/pkg/store"
)

// pathGraph builds a path graph with n nodes and one feature channel.
func pathGraph(n int) *graph.Graph {
	g := &graph.Graph{
		Features:  make([][]float64, n),
		Adjacency: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		g.Features[i] = []float64{float64(i) / 10}
		g.Adjacency[i] = make([]float64, n)
		if i > 0 {
			g.Adjacency[i][i-1] = 1
			g.Adjacency[i-1][i] = 1
		}
	}
	return g
}

func testSets() (SliceDataset, SliceDataset) {
	train := SliceDataset{
		{Graph: pathGraph(4), Label: 0},
		{Graph: pathGraph(5), Label: 1},
		{Graph: pathGraph(3), Label: 2},
	}
	eval := SliceDataset{
		{Graph: pathGraph(4), Label: 1},
	}
	return train, eval
}

func newTestRunner(t *testing.T) (*Runner, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewRunner(st, nil), st
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.NumNodes != DefaultNumNodes {
		t.Errorf("NumNodes = %d, want %d", opts.NumNodes, DefaultNumNodes)
	}
	if opts.NodeStride != 1 || opts.NeighborhoodSize != 9 || opts.MaxNumEpochs != 1 {
		t.Errorf("defaults = stride %d, size %d, epochs %d", opts.NodeStride, opts.NeighborhoodSize, opts.MaxNumEpochs)
	}
	if opts.Labeling != "scanline" || opts.Assembly != "weights_to_root" {
		t.Errorf("strategy defaults = %q, %q", opts.Labeling, opts.Assembly)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad labeling", Options{Labeling: "alphabetical"}},
		{"bad assembly", Options{Assembly: "dijkstra"}},
		{"negative stride", Options{NodeStride: -1}},
		{"negative epochs", Options{MaxNumEpochs: -2}},
	}

	for _, tt := range tests {
		err := tt.opts.ValidateAndSetDefaults()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, errors.ErrCodeInvalidConfig) && !errors.Is(err, errors.ErrCodeInvalidStrategy) {
			t.Errorf("%s: code = %q", tt.name, errors.GetCode(err))
		}
	}
}

func TestMaterializeAll(t *testing.T) {
	ctx := context.Background()
	runner, st := newTestRunner(t)
	train, eval := testSets()

	results, err := runner.MaterializeAll(ctx, Options{NumNodes: 4, NeighborhoodSize: 3}, train, eval)
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d split results, want 2 (train, eval)", len(results))
	}

	for _, want := range []struct {
		split string
		count int
	}{
		{store.SplitTrain, 3},
		{store.SplitEval, 1},
	} {
		info, err := st.LoadInfo(ctx, want.split)
		if err != nil {
			t.Fatalf("LoadInfo(%s): %v", want.split, err)
		}
		if info.Count != want.count {
			t.Errorf("%s count = %d, want %d", want.split, info.Count, want.count)
		}
	}

	desc, err := st.LoadDescriptor(ctx)
	if err != nil {
		t.Fatalf("LoadDescriptor: %v", err)
	}
	if desc.RunID == "" {
		t.Error("descriptor has no run ID")
	}
	if desc.NumChannels != 1 {
		t.Errorf("descriptor channels = %d, want 1", desc.NumChannels)
	}
	if desc.NodeLabeling != "scanline" || desc.NeighborhoodAssembly != "weights_to_root" {
		t.Errorf("descriptor strategies = %q, %q", desc.NodeLabeling, desc.NeighborhoodAssembly)
	}
}

func TestMaterializeSkipsMalformedGraphs(t *testing.T) {
	ctx := context.Background()
	runner, st := newTestRunner(t)

	bad := &graph.Graph{
		Features:  [][]float64{{1}},
		Adjacency: [][]float64{{0, 1}, {1, 0}},
	}
	train := SliceDataset{
		{Graph: pathGraph(3), Label: 0},
		{Graph: bad, Label: 1},
		{Graph: pathGraph(3), Label: 2},
	}

	results, err := runner.MaterializeAll(ctx, Options{NumNodes: 3, NeighborhoodSize: 2}, train, nil)
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Written != 2 || results[0].Skipped != 1 {
		t.Errorf("written %d skipped %d, want 2 and 1", results[0].Written, results[0].Skipped)
	}

	// Good examples around the bad one both made it, in order.
	rec, err := st.Read(ctx, store.SplitTrain, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Label != 2 {
		t.Errorf("second stored record has label %d, want 2", rec.Label)
	}
}

func TestMaterializeReusesExistingSplit(t *testing.T) {
	ctx := context.Background()
	runner, _ := newTestRunner(t)
	train, eval := testSets()
	opts := Options{NumNodes: 4, NeighborhoodSize: 3}

	if _, err := runner.MaterializeAll(ctx, opts, train, eval); err != nil {
		t.Fatalf("first MaterializeAll: %v", err)
	}
	results, err := runner.MaterializeAll(ctx, opts, train, eval)
	if err != nil {
		t.Fatalf("second MaterializeAll: %v", err)
	}
	for _, res := range results {
		if !res.Reused {
			t.Errorf("split %s was rewritten without force", res.Split)
		}
	}
}

func TestMaterializeForceRewrites(t *testing.T) {
	ctx := context.Background()
	runner, st := newTestRunner(t)
	train, eval := testSets()
	opts := Options{NumNodes: 4, NeighborhoodSize: 3}

	if _, err := runner.MaterializeAll(ctx, opts, train, eval); err != nil {
		t.Fatalf("first MaterializeAll: %v", err)
	}

	opts.Force = true
	results, err := runner.MaterializeAll(ctx, opts, train, eval)
	if err != nil {
		t.Fatalf("forced MaterializeAll: %v", err)
	}
	for _, res := range results {
		if res.Reused {
			t.Errorf("split %s was not rewritten under force", res.Split)
		}
	}
	n, err := st.Count(ctx, store.SplitTrain)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("train count after force = %d, want 3 (no duplicates)", n)
	}
}

func TestMaterializeDescriptorMismatch(t *testing.T) {
	ctx := context.Background()
	runner, _ := newTestRunner(t)
	train, eval := testSets()

	if _, err := runner.MaterializeAll(ctx, Options{NumNodes: 4, NeighborhoodSize: 3}, train, eval); err != nil {
		t.Fatalf("first MaterializeAll: %v", err)
	}

	// Same store, different geometry: refuse rather than mix datasets.
	_, err := runner.MaterializeAll(ctx, Options{NumNodes: 2, NeighborhoodSize: 3}, train, eval)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("code = %q, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestMaterializeDistortedEpochs(t *testing.T) {
	ctx := context.Background()
	runner, st := newTestRunner(t)
	train, eval := testSets()

	opts := Options{
		NumNodes:         4,
		NeighborhoodSize: 3,
		MaxNumEpochs:     2,
		DistortInputs:    true,
		Seed:             7,
	}
	results, err := runner.MaterializeAll(ctx, opts, train, eval)
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 (train, eval, train_eval)", len(results))
	}

	info, err := st.LoadInfo(ctx, store.SplitTrain)
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	if info.Count != 6 {
		t.Errorf("train count = %d, want 6 (3 examples x 2 epochs)", info.Count)
	}

	// The distorted copy differs from the raw features, the undistorted
	// train_eval copy does not.
	raw := train[0].Graph.Features[0][0]
	distorted, err := st.Read(ctx, store.SplitTrain, 0)
	if err != nil {
		t.Fatalf("Read train: %v", err)
	}
	if distorted.Features[0][0] == raw {
		t.Error("train split features are undistorted")
	}
	clean, err := st.Read(ctx, store.SplitTrainEval, 0)
	if err != nil {
		t.Fatalf("Read train_eval: %v", err)
	}
	if clean.Features[0][0] != raw {
		t.Error("train_eval split features were distorted")
	}
}

func TestDistortPreservesStructure(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := pathGraph(4)
	d := Distort(rng, g)

	if d.NumNodes() != g.NumNodes() || d.NumChannels() != g.NumChannels() {
		t.Fatalf("distorted shape [%d][%d], want [%d][%d]",
			d.NumNodes(), d.NumChannels(), g.NumNodes(), g.NumChannels())
	}
	if &d.Adjacency[0] != &g.Adjacency[0] {
		t.Error("adjacency should be shared, not copied")
	}
	if g.Features[0][0] != 0 {
		t.Error("distortion must not mutate the input graph")
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	runner, st := newTestRunner(t)
	train, eval := testSets()

	if _, err := runner.MaterializeAll(ctx, Options{NumNodes: 4, NeighborhoodSize: 3}, train, eval); err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}

	loader, err := NewLoader(ctx, st)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	tensor, label, err := loader.Tensor(ctx, store.SplitTrain, 1)
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}
	if label != 1 {
		t.Errorf("label = %d, want 1", label)
	}
	if len(tensor) != 4 || len(tensor[0]) != 3 || len(tensor[0][0]) != 1 {
		t.Fatalf("tensor shape [%d][%d][%d], want [4][3][1]", len(tensor), len(tensor[0]), len(tensor[0][0]))
	}
	// Scanline labeling keeps node order, so the first cell of the first
	// row is node 0's feature.
	if tensor[0][0][0] != 0 {
		t.Errorf("tensor[0][0] = %v, want node 0 features", tensor[0][0])
	}

	tests := []struct {
		name      string
		epochSize int
		want      int
	}{
		{"unbounded", 0, 3},
		{"smaller epoch", 2, 2},
		{"larger epoch", 10, 3},
	}
	for _, tt := range tests {
		got, err := loader.ExamplesPerEpoch(ctx, store.SplitTrain, tt.epochSize)
		if err != nil {
			t.Fatalf("%s: ExamplesPerEpoch: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: ExamplesPerEpoch = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLoaderRequiresDescriptor(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	if _, err := NewLoader(ctx, st); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("code = %q, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestReadDatasetFileMissing(t *testing.T) {
	if _, err := ReadDatasetFile("/nonexistent/dataset.json"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("code = %q, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestImageDataset(t *testing.T) {
	ds := &ImageDataset{
		Source: graph.GridSource{Channels: 1},
		Pixels: [][][][]float64{
			{{{0.1}, {0.2}}, {{0.3}, {0.4}}},
		},
		Labels: []int{3},
	}
	if ds.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ds.Len())
	}
	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example: %v", err)
	}
	if ex.Label != 3 {
		t.Errorf("label = %d, want 3", ex.Label)
	}
	if ex.Graph.NumNodes() != 4 {
		t.Errorf("graph has %d nodes, want 4", ex.Graph.NumNodes())
	}
}
