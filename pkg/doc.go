// Package pkg holds the lanemap libraries.
//
// Lanemap lays out swimlane process maps. A workflow is a set of steps, each
// addressed by a swimlane letter and a column number ("B3"), plus named
// rows. The packages split that job into stages:
//
//  1. [grid] - address parsing and pixel geometry
//  2. [process] - steps, rows, workflows and their wire records
//  3. [layout] - projects addressed steps onto lanes and dividers
//  4. [connect] - resolves connection targets into edges
//  5. [diagram] - assembles the serializable diagram
//  6. [placement] - snaps drag and drop gestures back to addresses
//  7. [store] - persistence backends (memory, file, sqlite, mongo)
//  8. [cache] - diagram and artifact caching (file, redis)
//  9. [render] - SVG and Graphviz DOT output
//  10. [pipeline] - orchestration: load, layout, render, commit
//  11. [server] - the HTTP API
//
// # Data Flow
//
//	store.Snapshot
//	     ↓
//	layout.Projector + connect.Resolver  (diagram.Build)
//	     ↓
//	diagram.Diagram ──→ render/svg, render/dot, JSON
//
//	drag / drop ──→ placement.Engine ──→ store.UpdateStepAddress ──→ re-layout
//
// # Quick Start
//
//	st := store.NewMemory()
//	snap := st.Put(process.Snapshot{...})
//
//	r := pipeline.NewRunner(st, cache.NewNullCache(), nil, nil)
//	res, err := r.Execute(ctx, snap.Workflow.ID, pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG},
//	})
//
// # Errors
//
// Packages return [errors.Error] values carrying a code (INVALID_ADDRESS,
// OUT_OF_RANGE, STEP_NOT_FOUND, ...) that the HTTP layer maps to status
// codes.
//
// [grid]: github.com/matzehuels/lanemap/pkg/grid
// [process]: github.com/matzehuels/lanemap/pkg/process
// [layout]: github.com/matzehuels/lanemap/pkg/layout
// [connect]: github.com/matzehuels/lanemap/pkg/connect
// [diagram]: github.com/matzehuels/lanemap/pkg/diagram
// [placement]: github.com/matzehuels/lanemap/pkg/placement
// [store]: github.com/matzehuels/lanemap/pkg/store
// [cache]: github.com/matzehuels/lanemap/pkg/cache
// [render]: github.com/matzehuels/lanemap/pkg/render
// [pipeline]: github.com/matzehuels/lanemap/pkg/pipeline
// [server]: github.com/matzehuels/lanemap/pkg/server
// [errors.Error]: github.com/matzehuels/lanemap/pkg/errors
package pkg
