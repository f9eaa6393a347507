// Package dot converts a laid out process map to Graphviz DOT and renders
// it to SVG with the embedded Graphviz engine.
//
// Every node carries a pinned position (pos="x,y!") taken from the layout,
// so Graphviz only routes edges and draws shapes. Positions are given in
// points and the y axis is flipped to match Graphviz's upward axis.
//
//	src := dot.ToDOT(d, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/lanemap/pkg/diagram"
)

const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Detailed adds the grid address under each step's name.
	Detailed bool
	// Splines selects the Graphviz edge routing ("spline", "ortho", ...).
	// Empty means "spline".
	Splines string
}

var ports = map[string]string{
	"bottom": "s",
	"top":    "n",
	"right":  "e",
}

// NodeID returns the DOT node name used for a step.
func NodeID(stepID int64) string { return "step-" + strconv.FormatInt(stepID, 10) }

// ToDOT converts a diagram to DOT source for the neato engine.
func ToDOT(d *diagram.Diagram, opts Options) string {
	splines := opts.Splines
	if splines == "" {
		splines = "spline"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  graph [inputscale=%.0f, notranslate=true, overlap=true, splines=%q, bgcolor=\"transparent\"];\n", pointsPerInch, splines)
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=12, style=\"rounded,filled\", fillcolor=white, shape=box, fixedsize=true];\n")
	buf.WriteString("  edge [color=\"#64748b\", fontsize=10, fontname=\"Helvetica\"];\n\n")

	for _, l := range d.Lanes {
		fmt.Fprintf(&buf, "  %q [label=%q, shape=plaintext, style=\"\", fixedsize=false, pos=%q];\n",
			"lane-"+l.Letter, l.Label(), pin(l.LabelX+d.Geometry.GutterWidth/4, l.LabelY))
	}
	if len(d.Lanes) > 0 {
		buf.WriteString("\n")
	}

	for _, n := range d.Nodes {
		w, h := n.Size()
		attrs := []string{
			fmt.Sprintf("label=%q", label(n, opts.Detailed)),
			fmt.Sprintf("pos=%q", pin(n.X+w/2, n.Y+h/2)),
			fmt.Sprintf("width=%.3f", w/pointsPerInch),
			fmt.Sprintf("height=%.3f", h/pointsPerInch),
		}
		if n.IsDecision() {
			attrs = append(attrs, "shape=diamond", "style=filled")
		}
		if fill, ok := statusFill[n.Status]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", NodeID(n.StepID), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		attrs := []string{fmt.Sprintf("id=%q", e.ID), `headport="w"`}
		if p, ok := ports[e.SourceHandle]; ok {
			attrs = append(attrs, fmt.Sprintf("tailport=%q", p))
		}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("xlabel=%q", e.Label))
		}
		if e.Fallback {
			attrs = append(attrs, "style=dashed")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", NodeID(e.SourceStepID), NodeID(e.TargetStepID), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

var statusFill = map[string]string{
	"transformed": "#dcfce7",
	"in_progress": "#fef9c3",
	"analyzing":   "#dbeafe",
	"deferred":    "#e5e7eb",
}

func pin(x, y float64) string {
	return fmt.Sprintf("%.1f,%.1f!", x, -y)
}

func label(n diagram.Node, detailed bool) string {
	if !detailed {
		return n.Label()
	}
	return n.Label() + "\n" + n.Address
}

// RenderSVG lays out DOT source with neato, honoring pinned positions, and
// returns the SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one so browsers scale the output consistently.
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

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
