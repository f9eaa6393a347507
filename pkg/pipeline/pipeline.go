// Package pipeline runs the load → layout → render sequence for process
// maps and commits placement gestures back to the store.
//
// This package is the single place where the CLI and the HTTP API combine
// persistence, the layout engine, caching, and renderers, so both entry
// points behave the same way.
//
// # Architecture
//
//  1. Load: read a workflow snapshot from a [store.Store]
//  2. Layout: project steps onto the grid and resolve connections
//  3. Render: produce JSON, SVG, or DOT artifacts
//
// After a drag, drop, or address edit is persisted, the whole pipeline runs
// again on a fresh snapshot. Nothing from the previous run is reused except
// through content-addressed cache entries.
//
// # Usage
//
//	runner := pipeline.NewRunner(st, cache, nil, logger)
//	result, err := runner.Execute(ctx, workflowID, pipeline.Options{
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
//	commit, err := runner.Drag(ctx, workflowID, stepID, 410, 232, pipeline.Options{})
//	if commit.Applied {
//	    fmt.Println("moved to", commit.Address)
//	}
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/cache"
	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/layout"
	"github.com/matzehuels/lanemap/pkg/process"
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
)

// Renderers for the svg format.
const (
	RendererNative   = "native"
	RendererGraphviz = "graphviz"
)

// DefaultRenderer draws SVG without Graphviz.
const DefaultRenderer = RendererNative

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
	FormatDOT:  true,
}

// ValidRenderers is the set of supported SVG renderers.
var ValidRenderers = map[string]bool{
	RendererNative:   true,
	RendererGraphviz: true,
}

// Options configures a pipeline run.
type Options struct {
	// Layout options
	Geometry grid.Geometry `json:"geometry,omitempty"`
	Layout   layout.Config `json:"layout,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Renderer string   `json:"renderer,omitempty"`
	Title    bool     `json:"title,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // addresses in DOT labels

	// Refresh skips cache lookups; results are still stored.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the input the diagram was built from.
	Snapshot process.Snapshot
	// Issues lists records that were loaded with problems.
	Issues []process.Issue

	Diagram     *diagram.Diagram
	DiagramHash string

	// Artifacts holds rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Steps      int
	Nodes      int
	Edges      int
	Unplaced   int
	Dropped    int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, svg, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRenderer checks that a renderer is valid.
func ValidateRenderer(r string) error {
	if !ValidRenderers[r] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid renderer: %q (must be one of: native, graphviz)", r)
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// SetLayoutDefaults fills geometry and decoration defaults.
func (o *Options) SetLayoutDefaults() {
	o.Geometry = o.Geometry.WithDefaults()
	o.Layout = o.Layout.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ValidateForLayout sets defaults and checks the geometry.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return o.Geometry.Validate()
}

// SetRenderDefaults fills format and renderer defaults.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Renderer == "" {
		o.Renderer = DefaultRenderer
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ValidateForRender sets defaults and checks formats and renderer.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return ValidateRenderer(o.Renderer)
}

// ValidateAndSetDefaults prepares options for a full run.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

// DiagramKeyOpts returns cache key options for layout.
func (o *Options) DiagramKeyOpts() cache.DiagramKeyOpts {
	return cache.DiagramKeyOpts{
		Geometry: o.Geometry,
		Layout:   o.Layout,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format == FormatSVG {
		opts.Renderer = o.Renderer
	}
	var theme []string
	if o.Title {
		theme = append(theme, "title")
	}
	if o.Detailed && format == FormatDOT {
		theme = append(theme, "detailed")
	}
	opts.Theme = strings.Join(theme, ",")
	return opts
}
