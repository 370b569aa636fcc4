package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/patchy"
)

func testRecord(label int) *Record {
	return &Record{
		Features: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		Table:    patchy.Table{{0, 1, patchy.Absent}},
		Label:    label,
	}
}

func TestFileStoreAppendRead(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	for i := 0; i < 3; i++ {
		if err := st.Append(ctx, SplitTrain, testRecord(i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	n, err := st.Count(ctx, SplitTrain)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	for i := 0; i < 3; i++ {
		rec, err := st.Read(ctx, SplitTrain, i)
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if rec.Label != i {
			t.Errorf("record %d has label %d", i, rec.Label)
		}
		if !reflect.DeepEqual(rec, testRecord(i)) {
			t.Errorf("record %d = %+v, want %+v", i, rec, testRecord(i))
		}
	}
}

func TestFileStoreReadOutOfRange(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	if err := st.Append(ctx, SplitTrain, testRecord(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, idx := range []int{-1, 1, 100} {
		_, err := st.Read(ctx, SplitTrain, idx)
		if !errors.Is(err, errors.ErrCodeRecordNotFound) {
			t.Errorf("Read(%d): code = %q, want RECORD_NOT_FOUND", idx, errors.GetCode(err))
		}
	}

	// Unknown splits behave like empty ones.
	_, err = st.Read(ctx, "unknown", 0)
	if !errors.Is(err, errors.ErrCodeRecordNotFound) {
		t.Errorf("unknown split: code = %q, want RECORD_NOT_FOUND", errors.GetCode(err))
	}
}

func TestFileStoreSplitsIsolated(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	if err := st.Append(ctx, SplitTrain, testRecord(1)); err != nil {
		t.Fatalf("Append train: %v", err)
	}
	if err := st.Append(ctx, SplitEval, testRecord(2)); err != nil {
		t.Fatalf("Append eval: %v", err)
	}

	rec, err := st.Read(ctx, SplitEval, 0)
	if err != nil {
		t.Fatalf("Read eval: %v", err)
	}
	if rec.Label != 2 {
		t.Errorf("eval record 0 has label %d, want 2", rec.Label)
	}
}

func TestFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := st.Append(ctx, SplitTrain, testRecord(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := st.SaveInfo(ctx, SplitTrain, SplitInfo{Count: 2}); err != nil {
		t.Fatalf("SaveInfo: %v", err)
	}
	st.Close()

	// A fresh store over the same directory must re-index existing records.
	st2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	n, err := st2.Count(ctx, SplitTrain)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count after reopen = %d, want 2", n)
	}
	rec, err := st2.Read(ctx, SplitTrain, 1)
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if rec.Label != 1 {
		t.Errorf("record 1 has label %d, want 1", rec.Label)
	}
	info, err := st2.LoadInfo(ctx, SplitTrain)
	if err != nil {
		t.Fatalf("LoadInfo: %v", err)
	}
	if info.Count != 2 {
		t.Errorf("info.Count = %d, want 2", info.Count)
	}
}

func TestFileStoreInfoNotFound(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	if _, err := st.LoadInfo(ctx, SplitTrain); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("LoadInfo: code = %q, want NOT_FOUND", errors.GetCode(err))
	}
	if _, err := st.LoadDescriptor(ctx); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("LoadDescriptor: code = %q, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestFileStoreDescriptorRoundtrip(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	d := NewDescriptor(Descriptor{
		MaxNumEpochs:         5,
		NodeLabeling:         "scanline",
		NumNodes:             100,
		NumChannels:          1,
		NodeStride:           1,
		NeighborhoodAssembly: "weights_to_root",
		NeighborhoodSize:     9,
	})
	if d.RunID == "" {
		t.Fatal("NewDescriptor did not assign a run ID")
	}

	if err := st.SaveDescriptor(ctx, d); err != nil {
		t.Fatalf("SaveDescriptor: %v", err)
	}
	got, err := st.LoadDescriptor(ctx)
	if err != nil {
		t.Fatalf("LoadDescriptor: %v", err)
	}
	if got.RunID != d.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, d.RunID)
	}
	if !got.Matches(d) {
		t.Errorf("loaded descriptor does not match saved: %+v vs %+v", got, d)
	}
}

func TestDescriptorMatches(t *testing.T) {
	base := Descriptor{
		NodeLabeling:         "scanline",
		NumNodes:             100,
		NeighborhoodAssembly: "weights_to_root",
		NeighborhoodSize:     9,
		NodeStride:           1,
		NumChannels:          1,
		MaxNumEpochs:         3,
	}

	tests := []struct {
		name   string
		mutate func(*Descriptor)
		want   bool
	}{
		{"identical", func(*Descriptor) {}, true},
		{"different run id", func(d *Descriptor) { d.RunID = "other" }, true},
		{"different num nodes", func(d *Descriptor) { d.NumNodes = 50 }, false},
		{"different labeling", func(d *Descriptor) { d.NodeLabeling = "degree" }, false},
		{"different assembly", func(d *Descriptor) { d.NeighborhoodAssembly = "distance" }, false},
		{"different distort", func(d *Descriptor) { d.DistortInputs = true }, false},
		{"different epochs", func(d *Descriptor) { d.MaxNumEpochs = 1 }, false},
	}

	for _, tt := range tests {
		other := base
		tt.mutate(&other)
		if got := base.Matches(other); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFileStoreReset(t *testing.T) {
	ctx := context.Background()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	if err := st.Append(ctx, SplitTrain, testRecord(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := st.SaveInfo(ctx, SplitTrain, SplitInfo{Count: 1}); err != nil {
		t.Fatalf("SaveInfo: %v", err)
	}

	if err := st.Reset(ctx, SplitTrain); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	n, err := st.Count(ctx, SplitTrain)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after reset = %d, want 0", n)
	}
	if _, err := st.LoadInfo(ctx, SplitTrain); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("LoadInfo after reset: code = %q, want NOT_FOUND", errors.GetCode(err))
	}
}
