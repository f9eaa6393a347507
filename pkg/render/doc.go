// Package render groups the output adapters for laid out process maps.
//
// Renderers never compute positions. They take a [diagram.Diagram] built by
// the layout engine and draw it:
//
//   - [svg]: native SVG with lane labels, dividers, status-colored tasks,
//     diamond decisions, and labeled edges
//   - [dot]: Graphviz DOT with pinned positions, plus SVG through the
//     embedded Graphviz engine
//
// The JSON form of a diagram is written by [diagram.Marshal].
//
// [diagram.Diagram]: github.com/matzehuels/lanemap/pkg/diagram
// [diagram.Marshal]: github.com/matzehuels/lanemap/pkg/diagram
// [svg]: github.com/matzehuels/lanemap/pkg/render/svg
// [dot]: github.com/matzehuels/lanemap/pkg/render/dot
package render
