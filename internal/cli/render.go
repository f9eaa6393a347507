package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/pkg/pipeline"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
		refresh    bool
	)
	var flags pipeline.Options

	cmd := &cobra.Command{
		Use:   "render [snapshot]",
		Short: "Render a workflow snapshot to SVG, DOT or JSON",
		Long: `Render a workflow snapshot. The native renderer draws the map directly;
--renderer graphviz routes the SVG through Graphviz with node positions
pinned to the grid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.baseOptions()
			if err != nil {
				return err
			}
			opts.Formats = pipeline.ParseFormats(formatsStr)
			opts.Renderer = flags.Renderer
			opts.Title = flags.Title
			opts.Detailed = flags.Detailed
			opts.Refresh = refresh
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], output, noCache, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", pipeline.FormatSVG, "output format(s): svg, dot, json (comma-separated)")
	cmd.Flags().StringVar(&flags.Renderer, "renderer", pipeline.DefaultRenderer, "svg renderer: native, graphviz")
	cmd.Flags().BoolVar(&flags.Title, "title", false, "draw the workflow name")
	cmd.Flags().BoolVar(&flags.Detailed, "detailed", false, "include addresses in DOT labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output string, noCache bool, opts pipeline.Options) error {
	st, wfID, err := openSnapshot(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}
	runner, err := c.newRunner(ctx, st, noCache)
	if err != nil {
		st.Close()
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Rendering...")
	spinner.Start()
	result, err := runner.Execute(ctx, wfID, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	paths := outputPaths(input, output, opts.Formats)
	for _, format := range opts.Formats {
		path := paths[format]
		if err := os.WriteFile(path, result.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	printSuccess("Rendered %s", result.Snapshot.Workflow.Name)
	for _, format := range opts.Formats {
		printFile(paths[format])
	}
	printStats(diagramStats{
		Nodes:    result.Stats.Nodes,
		Edges:    result.Stats.Edges,
		Unplaced: result.Stats.Unplaced,
		Dropped:  result.Stats.Dropped,
		Cached:   result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit,
	})
	printDropped(result.Diagram)
	return nil
}

// outputPaths maps each format to its file. A single format with an
// explicit output uses that path as is.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		if f == pipeline.FormatJSON {
			paths[f] = base + ".diagram.json"
			continue
		}
		paths[f] = base + "." + f
	}
	return paths
}

