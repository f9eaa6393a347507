package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/pkg/diagram"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		minCols int
	)

	cmd := &cobra.Command{
		Use:   "layout [snapshot]",
		Short: "Lay out a workflow snapshot as a diagram",
		Long: `Lay out a workflow snapshot (JSON, TOML or YAML) and write the diagram
as JSON: lanes, dividers, node positions, resolved connections, and the
steps and connections that could not be placed.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache, minCols)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <snapshot>.diagram.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVar(&minCols, "min-columns", 0, "minimum divider width in columns (default from config)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, noCache bool, minCols int) error {
	prog := newProgress(c.Logger)
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

	opts, err := c.baseOptions()
	if err != nil {
		return err
	}
	if minCols > 0 {
		opts.Layout.MinColumns = minCols
	}

	snap, _, err := runner.Load(ctx, wfID)
	if err != nil {
		return err
	}
	prog.done("Loaded snapshot", "path", input, "steps", len(snap.Steps))

	spinner := newSpinner(ctx, "Computing layout...")
	spinner.Start()
	d, cacheHit, err := runner.LayoutWithCacheInfo(ctx, snap, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".diagram.json"
	}
	if err := diagram.WriteFile(d, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	s := d.Stats()
	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(diagramStats{Nodes: s.Nodes, Edges: s.Edges, Unplaced: s.Unplaced, Dropped: s.Dropped, Cached: cacheHit})
	printDropped(d)
	printNewline()
	printNextStep("Render", appName+" render "+input)

	return nil
}

// printDropped lists connections the layout could not draw.
func printDropped(d *diagram.Diagram) {
	for _, drop := range d.Dropped {
		printWarning("step %d %s %q: %s", drop.StepID, iconArrow, drop.Target, drop.Reason)
	}
}

// basePath derives the output base from the output and input paths. A
// known output extension is stripped, as is ".diagram".
func basePath(output, input string) string {
	p := output
	if p == "" {
		p = input
	}
	ext := filepath.Ext(p)
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json", "svg", "dot", "toml", "yaml", "yml":
		p = strings.TrimSuffix(p, ext)
	}
	return strings.TrimSuffix(p, ".diagram")
}
