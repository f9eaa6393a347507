package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/render/dot"
	"github.com/matzehuels/lanemap/pkg/render/svg"
)

// Render generates artifacts for every requested format.
func Render(ctx context.Context, d *diagram.Diagram, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := renderFormat(ctx, d, format, opts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, d *diagram.Diagram, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return diagram.Marshal(d)
	case FormatDOT:
		return []byte(dot.ToDOT(d, dotOptions(opts))), nil
	case FormatSVG:
		if opts.Renderer == RendererGraphviz {
			return dot.RenderSVG(ctx, dot.ToDOT(d, dotOptions(opts)))
		}
		return svg.Render(d, svgOptions(opts)...), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

func svgOptions(opts Options) []svg.Option {
	var out []svg.Option
	if opts.Title {
		out = append(out, svg.WithTitle(true))
	}
	return out
}

func dotOptions(opts Options) dot.Options {
	return dot.Options{Detailed: opts.Detailed}
}
