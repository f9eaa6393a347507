package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/pkg/pipeline"
	"github.com/matzehuels/lanemap/pkg/store"
)

// gesture commits one placement against a snapshot file.
type gesture func(ctx context.Context, r *pipeline.Runner, wfID int64, opts pipeline.Options) (*pipeline.Commit, error)

// moveCommand creates the move command (a drag on the map).
func (c *CLI) moveCommand() *cobra.Command {
	var (
		stepID int64
		x, y   float64
	)
	cmd := &cobra.Command{
		Use:   "move [snapshot] --step N --x X --y Y",
		Short: "Drag a placed step to the cell nearest a pixel position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommit(cmd.Context(), args[0], stepID, func(ctx context.Context, r *pipeline.Runner, wfID int64, opts pipeline.Options) (*pipeline.Commit, error) {
				return r.Drag(ctx, wfID, stepID, x, y, opts)
			})
		},
	}
	cmd.Flags().Int64Var(&stepID, "step", 0, "step id")
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x in map pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "pointer y in map pixels")
	_ = cmd.MarkFlagRequired("step")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}

// dropCommand creates the drop command (a step dropped into a lane).
func (c *CLI) dropCommand() *cobra.Command {
	var (
		stepID int64
		lane   string
		x      float64
	)
	cmd := &cobra.Command{
		Use:   "drop [snapshot] --step N --lane C --x X",
		Short: "Drop a step into a swimlane at the column nearest x",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommit(cmd.Context(), args[0], stepID, func(ctx context.Context, r *pipeline.Runner, wfID int64, opts pipeline.Options) (*pipeline.Commit, error) {
				return r.Drop(ctx, wfID, stepID, lane, x, opts)
			})
		},
	}
	cmd.Flags().Int64Var(&stepID, "step", 0, "step id")
	cmd.Flags().StringVar(&lane, "lane", "", "swimlane letter")
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x in map pixels")
	_ = cmd.MarkFlagRequired("step")
	_ = cmd.MarkFlagRequired("lane")
	_ = cmd.MarkFlagRequired("x")
	return cmd
}

// positionCommand creates the position command (an address typed in).
func (c *CLI) positionCommand() *cobra.Command {
	var (
		stepID  int64
		address string
	)
	cmd := &cobra.Command{
		Use:   "position [snapshot] --step N --address C7",
		Short: "Set a step's grid address directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommit(cmd.Context(), args[0], stepID, func(ctx context.Context, r *pipeline.Runner, wfID int64, opts pipeline.Options) (*pipeline.Commit, error) {
				return r.SetAddress(ctx, wfID, stepID, address, opts)
			})
		},
	}
	cmd.Flags().Int64Var(&stepID, "step", 0, "step id")
	cmd.Flags().StringVar(&address, "address", "", "grid address, e.g. B3")
	_ = cmd.MarkFlagRequired("step")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

// runCommit opens the snapshot file, applies g, and reports the outcome.
// The file is rewritten only when the step actually moved.
func (c *CLI) runCommit(ctx context.Context, input string, stepID int64, g gesture) error {
	st, wfID, err := openSnapshot(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}
	runner, err := c.newRunner(ctx, st, true)
	if err != nil {
		st.Close()
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts, err := c.baseOptions()
	if err != nil {
		return err
	}
	opts.Formats = []string{pipeline.FormatJSON}

	snap, _, err := runner.Load(ctx, wfID)
	if err != nil {
		return err
	}
	from := ""
	if step, ok := snap.Step(stepID); ok {
		from = step.Address
	}

	commit, err := g(ctx, runner, wfID, opts)
	if err != nil {
		return err
	}
	printCommit(commit, from, input)
	if commit.Applied {
		return auditTrail(ctx, st, stepID)
	}
	return nil
}

func printCommit(commit *pipeline.Commit, from, path string) {
	if !commit.Applied {
		printInfo("Step already at %s; nothing to do", from)
		return
	}
	printSuccess("Moved step %d", commit.Request.StepID)
	printMove(from, commit.Address)
	printFile(path)
	if res := commit.Result; res != nil {
		printStats(diagramStats{
			Nodes:    res.Stats.Nodes,
			Edges:    res.Stats.Edges,
			Unplaced: res.Stats.Unplaced,
			Dropped:  res.Stats.Dropped,
		})
		printDropped(res.Diagram)
	}
}

// auditTrail prints the recorded moves of a step, newest last.
func auditTrail(ctx context.Context, st store.Store, stepID int64) error {
	entries, err := st.Audit(ctx, stepID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		printDetail("%s  %s  %s  %s", e.At.Format("2006-01-02 15:04:05"), e.Action, e.ChangedBy, e.Changes)
	}
	return nil
}
