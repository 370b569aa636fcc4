package patchy

import (
	"testing"

	"github.com/matzehuels/patchy/pkg/graph"
)

func grid3x3(t *testing.T) *graph.Graph {
	t.Helper()
	img := make([][][]float64, 3)
	for y := range img {
		img[y] = make([][]float64, 3)
		for x := range img[y] {
			img[y][x] = []float64{float64(y*3 + x)}
		}
	}
	g, err := graph.Grid(img)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	return g
}

func TestParseLabeling(t *testing.T) {
	tests := []struct {
		name    string
		want    Labeling
		wantErr bool
	}{
		{"scanline", LabelingScanline, false},
		{"degree", LabelingDegree, false},
		{"pagerank", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLabeling(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLabeling(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLabeling(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLabelingStringRoundtrip(t *testing.T) {
	for _, l := range []Labeling{LabelingScanline, LabelingDegree} {
		got, err := ParseLabeling(l.String())
		if err != nil {
			t.Errorf("ParseLabeling(%q): %v", l.String(), err)
		}
		if got != l {
			t.Errorf("roundtrip %v -> %q -> %v", l, l.String(), got)
		}
	}
}

func TestScanlineRanks(t *testing.T) {
	g := grid3x3(t)
	ranks := LabelingScanline.Ranks(g.Adjacency)

	if len(ranks) != 9 {
		t.Fatalf("len(ranks) = %d, want 9", len(ranks))
	}
	for i, r := range ranks {
		if r != float64(i) {
			t.Errorf("ranks[%d] = %v, want %v (raster order)", i, r, float64(i))
		}
	}
}

func TestScanlineEmptyGraph(t *testing.T) {
	ranks := LabelingScanline.Ranks(nil)
	if len(ranks) != 0 {
		t.Errorf("empty graph should yield empty ranking, got %v", ranks)
	}
}

func TestDegreeRanks(t *testing.T) {
	g := grid3x3(t)
	ranks := LabelingDegree.Ranks(g.Adjacency)

	order := Order(ranks)
	// The center pixel (node 4, degree 4) must order first; corners
	// (degree 2) come last.
	if order[0] != 4 {
		t.Errorf("order[0] = %d, want 4 (highest degree)", order[0])
	}
	corners := map[int]bool{0: true, 2: true, 6: true, 8: true}
	for _, idx := range order[5:] {
		if !corners[idx] {
			t.Errorf("expected corners in the last positions, got %d", idx)
		}
	}
}

func TestOrderTieBreak(t *testing.T) {
	// Equal ranks fall back to index order.
	order := Order([]float64{1, 1, 0, 1})
	want := []int{2, 0, 1, 3}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Order = %v, want %v", order, want)
		}
	}
}
