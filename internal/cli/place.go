package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/pkg/pipeline"
)

// placeCommand creates the interactive place command.
func (c *CLI) placeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "place [snapshot]",
		Short: "Interactively drop an unplaced step into a lane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlace(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runPlace(ctx context.Context, input string) error {
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

	result, err := runner.Execute(ctx, wfID, opts)
	if err != nil {
		return err
	}
	if len(result.Diagram.Unplaced) == 0 {
		printInfo("Every step in %s is placed", input)
		return nil
	}

	final, err := tea.NewProgram(NewPlaceModel(result.Diagram), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("place: %w", err)
	}
	sel := final.(PlaceModel).Selected
	if sel == nil {
		printInfo("Nothing placed")
		return nil
	}

	x := opts.Geometry.ColumnX(sel.Column)
	commit, err := runner.Drop(ctx, wfID, sel.StepID, sel.Lane, x, opts)
	if err != nil {
		return err
	}
	printCommit(commit, "", input)
	return nil
}
