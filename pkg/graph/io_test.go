package graph

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphRoundtrip(t *testing.T) {
	g := path3()

	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatalf("MarshalGraph: %v", err)
	}

	got, err := ReadGraph(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}

	if got.NumNodes() != g.NumNodes() {
		t.Errorf("NumNodes = %d, want %d", got.NumNodes(), g.NumNodes())
	}
	if got.Features[1][0] != 0.2 {
		t.Errorf("Features[1] = %v", got.Features[1])
	}
	if got.Adjacency[0][1] != 1 {
		t.Errorf("Adjacency[0][1] = %v, want 1", got.Adjacency[0][1])
	}
}

func TestMarshalDeterministic(t *testing.T) {
	g := path3()

	a, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("MarshalGraph is not deterministic")
	}
}

func TestReadGraphRejectsBadShapes(t *testing.T) {
	// Adjacency 2×2 but only one feature row.
	bad := `{"features":[[1]],"adjacency":[[0,1],[1,0]]}`
	if _, err := ReadGraph(strings.NewReader(bad)); err == nil {
		t.Error("mismatched shapes should fail validation on read")
	}
}

func TestReadGraphRejectsInvalidJSON(t *testing.T) {
	if _, err := ReadGraph(strings.NewReader("{not json")); err == nil {
		t.Error("invalid JSON should fail")
	}
}

func TestGraphFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	g := path3()

	if err := WriteGraphFile(g, path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}
	got, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if got.NumNodes() != 3 {
		t.Errorf("NumNodes = %d, want 3", got.NumNodes())
	}
}

func TestReadGraphFileMissing(t *testing.T) {
	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}
