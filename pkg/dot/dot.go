// Package dot renders partial order alignment graphs with Graphviz. ToDOT
// emits the textual DOT form; Render wraps it with SVG and PNG rasterization
// through the embedded Graphviz runtime, so no system binary is needed.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// Format selects the Render output encoding.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatDOT:
		return FormatDOT, nil
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", pkgerrors.New(pkgerrors.ErrCodeUnsupported, "unsupported render format %q, want dot, svg, or png", s)
}

// Options configures graph rendering.
type Options struct {
	// Detailed includes node identifiers and support weights in labels
	// and labels edges with their weights. When false, nodes show only
	// their residue.
	Detailed bool
}

// Render converts a graph to the requested format.
func Render(g *poa.Graph, opts Options, format Format) ([]byte, error) {
	text := ToDOT(g, opts)
	switch format {
	case FormatDOT:
		return []byte(text), nil
	case FormatSVG:
		return RenderSVG(text)
	case FormatPNG:
		return RenderPNG(text)
	}
	return nil, pkgerrors.New(pkgerrors.ErrCodeUnsupported, "unsupported render format %q", format)
}

// ToDOT converts a graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
//
// Sentinels are drawn as dashed START and END boxes, and the members of an
// aligned column share a rank joined by a dashed connector, so substituted
// residues appear stacked in one visual column.
func ToDOT(g *poa.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(g, n, opts.Detailed)
		attrs := fmtAttrs(g, n, label)
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if opts.Detailed {
			fmt.Fprintf(&buf, "  %d -> %d [label=\"%d\"];\n", e.From, e.To, e.Weight)
		} else {
			fmt.Fprintf(&buf, "  %d -> %d;\n", e.From, e.To)
		}
	}

	writeAlignedColumns(&buf, g)

	buf.WriteString("}\n")
	return buf.String()
}

// writeAlignedColumns emits one rank=same block per aligned group plus
// dashed connectors, each group listed once under its lowest member.
func writeAlignedColumns(buf *bytes.Buffer, g *poa.Graph) {
	wrote := false
	for _, n := range g.Nodes() {
		if len(n.AlignedTo) == 0 || slices.Min(n.AlignedTo) < n.ID {
			continue
		}
		if !wrote {
			buf.WriteString("\n")
			wrote = true
		}
		group := append([]poa.NodeID{n.ID}, n.AlignedTo...)
		buf.WriteString("  { rank=same;")
		for _, id := range group {
			fmt.Fprintf(buf, " %d;", id)
		}
		buf.WriteString(" }\n")
		for i := 1; i < len(group); i++ {
			fmt.Fprintf(buf, "  %d -> %d [style=dashed, arrowhead=none, constraint=false, color=grey];\n",
				group[i-1], group[i])
		}
	}
}

func fmtLabel(g *poa.Graph, n *poa.Node, detailed bool) string {
	switch n.ID {
	case g.Start():
		return "START"
	case g.End():
		return "END"
	}
	if !detailed {
		return string(n.Symbol)
	}
	return fmt.Sprintf("%c\nid: %d\nweight: %d", n.Symbol, n.ID, n.Weight)
}

func fmtAttrs(g *poa.Graph, n *poa.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if g.IsSentinel(n.ID) {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(dot, graphviz.SVG, &buf); err != nil {
		return nil, err
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(dot, graphviz.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(dot string, format graphviz.Format, w *bytes.Buffer) error {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if err := gv.Render(ctx, g, format, w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the drawing starts at the
// origin with explicit pixel dimensions, which keeps embedded previews
// from clipping.
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
