// Package svg draws a laid out process map as a standalone SVG document.
//
// Lanes are labeled in the left gutter and separated by dashed dividers.
// Tasks are rounded boxes filled by status, decisions are diamonds, and
// edges leave decisions from the side named by their routing hint.
//
//	d := diagram.Build(snap, diagram.Options{})
//	out := svg.Render(d, svg.WithTitle(true))
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/lanemap/pkg/diagram"
)

const (
	fontFamily   = "Inter, Helvetica, Arial, sans-serif"
	edgeCurve    = 60.0
	maxLabelRune = 22
	titleHeight  = 40.0
)

// Status fill colors. Unknown statuses use the default fill.
var statusFill = map[string]string{
	"transformed": "#dcfce7",
	"in_progress": "#fef9c3",
	"analyzing":   "#dbeafe",
	"deferred":    "#e5e7eb",
}

const defaultFill = "#ffffff"

// Option configures Render.
type Option func(*renderer)

type renderer struct {
	title      bool
	background string
	edgeLabels bool
}

// WithTitle draws the workflow name above the map.
func WithTitle(on bool) Option { return func(r *renderer) { r.title = on } }

// WithBackground fills the canvas with a color. Empty means transparent.
func WithBackground(color string) Option { return func(r *renderer) { r.background = color } }

// WithoutEdgeLabels hides connection labels.
func WithoutEdgeLabels() Option { return func(r *renderer) { r.edgeLabels = false } }

// Render returns the SVG document for d.
func Render(d *diagram.Diagram, opts ...Option) []byte {
	r := renderer{edgeLabels: true}
	for _, opt := range opts {
		opt(&r)
	}

	offset := 0.0
	if r.title && d.Workflow.Name != "" {
		offset = titleHeight
	}
	width, height := d.Width, d.Height+offset

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="%s">`+"\n",
		width, height, width, height, fontFamily)
	renderDefs(&buf)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escape(r.background))
	}
	if offset > 0 {
		fmt.Fprintf(&buf, `  <text class="title" x="%.1f" y="%.1f" font-size="20" font-weight="bold">%s</text>`+"\n",
			d.Geometry.GutterWidth, offset*0.7, escape(d.Workflow.Name))
	}

	fmt.Fprintf(&buf, `  <g transform="translate(0 %.1f)">`+"\n", offset)
	renderLanes(&buf, d)
	renderEdges(&buf, d, r.edgeLabels)
	renderNodes(&buf, d)
	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString(`  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="#64748b"/>
    </marker>
  </defs>
`)
}

func renderLanes(buf *bytes.Buffer, d *diagram.Diagram) {
	for _, div := range d.Dividers {
		fmt.Fprintf(buf, `  <line class="divider" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#cbd5e1" stroke-width="2" stroke-dasharray="8 6"/>`+"\n",
			div.X, div.Y, div.X+div.Width, div.Y)
	}
	for _, l := range d.Lanes {
		fmt.Fprintf(buf, `  <text class="lane-label" id="lane-%s" x="%.1f" y="%.1f" font-size="16" font-weight="bold" fill="#334155">%s</text>`+"\n",
			l.Letter, l.LabelX, l.LabelY, escape(l.Label()))
	}
}

// anchor is where an edge attaches to a node.
type anchor struct{ x, y, dx, dy float64 }

func sourceAnchor(n diagram.Node, handle string) anchor {
	w, h := n.Size()
	switch handle {
	case "bottom":
		return anchor{n.X + w/2, n.Y + h, 0, 1}
	case "top":
		return anchor{n.X + w/2, n.Y, 0, -1}
	}
	return anchor{n.X + w, n.Y + h/2, 1, 0}
}

func targetAnchor(n diagram.Node) anchor {
	_, h := n.Size()
	return anchor{n.X, n.Y + h/2, -1, 0}
}

func renderEdges(buf *bytes.Buffer, d *diagram.Diagram, labels bool) {
	nodes := make(map[int64]diagram.Node, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes[n.StepID] = n
	}
	for _, e := range d.Edges {
		src, okS := nodes[e.SourceStepID]
		dst, okD := nodes[e.TargetStepID]
		if !okS || !okD {
			continue
		}
		a := sourceAnchor(src, e.SourceHandle)
		b := targetAnchor(dst)
		c1x, c1y := a.x+a.dx*edgeCurve, a.y+a.dy*edgeCurve
		c2x, c2y := b.x+b.dx*edgeCurve, b.y+b.dy*edgeCurve

		dash := ""
		if e.Fallback {
			dash = ` stroke-dasharray="6 4"`
		}
		fmt.Fprintf(buf, `  <path class="edge" id="%s" d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" fill="none" stroke="#64748b" stroke-width="2"%s marker-end="url(#arrow)"/>`+"\n",
			e.ID, a.x, a.y, c1x, c1y, c2x, c2y, b.x, b.y, dash)

		if labels && e.Label != "" {
			// midpoint of the cubic at t=0.5
			mx := (a.x + 3*c1x + 3*c2x + b.x) / 8
			my := (a.y + 3*c1y + 3*c2y + b.y) / 8
			fmt.Fprintf(buf, `  <text class="edge-label" x="%.1f" y="%.1f" font-size="12" text-anchor="middle" fill="#475569" paint-order="stroke" stroke="#ffffff" stroke-width="4">%s</text>`+"\n",
				mx, my-4, escape(e.Label))
		}
	}
}

func renderNodes(buf *bytes.Buffer, d *diagram.Diagram) {
	for _, n := range d.Nodes {
		w, h := n.Size()
		fill := statusFill[n.Status]
		if fill == "" {
			fill = defaultFill
		}
		fmt.Fprintf(buf, `  <g class="node" id="step-%d" data-address="%s">`+"\n", n.StepID, n.Address)
		if n.IsDecision() {
			cx, cy := n.X+w/2, n.Y+h/2
			fmt.Fprintf(buf, `    <polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="%s" stroke="#7c3aed" stroke-width="2"/>`+"\n",
				cx, n.Y, n.X+w, cy, cx, n.Y+h, n.X, cy, fill)
		} else {
			fmt.Fprintf(buf, `    <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" fill="%s" stroke="#334155" stroke-width="2"/>`+"\n",
				n.X, n.Y, w, h, fill)
		}
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="13" text-anchor="middle" dominant-baseline="middle" fill="#0f172a">%s</text>`+"\n",
			n.X+w/2, n.Y+h/2, escape(truncate(n.Label(), maxLabelRune)))
		fmt.Fprintf(buf, "    <title>%s (%s)</title>\n  </g>\n", escape(n.Label()), n.Address)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
