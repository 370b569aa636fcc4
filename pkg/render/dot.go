// Package render draws input graphs and their receptive fields.
//
// A graph is exported to Graphviz DOT as an undirected diagram, optionally
// highlighting one assembled neighborhood: the root in one color, the rest
// of the receptive field in another. The DOT string can then be rendered
// to SVG or PNG via Graphviz.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/graph"
	"github.com/matzehuels/patchy/pkg/patchy"
)

// Options configures graph rendering.
type Options struct {
	// Field highlights one neighborhood row: Field[0] is painted as the
	// root, the remaining cells as members. Absent cells are ignored.
	Field []int

	// Detailed includes feature values in node labels.
	// When false, only the node index is shown.
	Detailed bool
}

// ToDOT converts a graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
func ToDOT(g *graph.Graph, opts Options) string {
	root, members := fieldSets(opts.Field)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for i := 0; i < g.NumNodes(); i++ {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(g, i, opts.Detailed))}
		switch {
		case i == root:
			attrs = append(attrs, "fillcolor=gold", "penwidth=2")
		case members[i]:
			attrs = append(attrs, "fillcolor=lightblue")
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i := 0; i < g.NumNodes(); i++ {
		for j := i + 1; j < g.NumNodes(); j++ {
			w := g.Adjacency[i][j]
			if w == 0 {
				continue
			}
			if w == 1 {
				fmt.Fprintf(&buf, "  %d -- %d;\n", i, j)
			} else {
				fmt.Fprintf(&buf, "  %d -- %d [label=%q];\n", i, j, strconv.FormatFloat(w, 'g', -1, 64))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// fieldSets splits a neighborhood row into the root index and the member
// set. Returns root -1 when the row is empty or starts absent.
func fieldSets(field []int) (int, map[int]bool) {
	members := make(map[int]bool)
	if len(field) == 0 {
		return patchy.Absent, members
	}
	for _, idx := range field[1:] {
		if idx != patchy.Absent {
			members[idx] = true
		}
	}
	return field[0], members
}

func fmtLabel(g *graph.Graph, i int, detailed bool) string {
	if !detailed {
		return strconv.Itoa(i)
	}
	parts := make([]string, 0, len(g.Features[i]))
	for _, v := range g.Features[i] {
		parts = append(parts, strconv.FormatFloat(v, 'g', 3, 64))
	}
	return fmt.Sprintf("%d\n[%s]", i, strings.Join(parts, " "))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG, func(b []byte) []byte {
		return normalizeViewBox(b)
	})
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG, nil)
}

func renderFormat(dot string, format graphviz.Format, post func([]byte) []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "render")
	}
	out := buf.Bytes()
	if post != nil {
		out = post(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so the image scales to
// its container instead of carrying Graphviz's point-based size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
