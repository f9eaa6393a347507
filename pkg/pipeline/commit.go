package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/observability"
	"github.com/matzehuels/lanemap/pkg/placement"
	"github.com/matzehuels/lanemap/pkg/process"
	"github.com/matzehuels/lanemap/pkg/store"
)

// Commit is the outcome of a placement gesture.
type Commit struct {
	Gesture string            `json:"gesture"`
	Request placement.Request `json:"request"`
	// Applied is false when the step was already at the target address.
	Applied bool `json:"applied"`
	// Address is the address the store persisted.
	Address string `json:"address,omitempty"`
	// Result is the refreshed pipeline run after an applied commit.
	Result *Result `json:"-"`
}

// Drag commits a placed step released at pixel position (x, y).
func (r *Runner) Drag(ctx context.Context, workflowID, stepID int64, x, y float64, opts Options) (*Commit, error) {
	return r.commit(ctx, GestureDrag, workflowID, opts, func(e *placement.Engine, snap *process.Snapshot) (placement.Request, bool, error) {
		return e.DragStep(snap, stepID, x, y)
	})
}

// Drop commits a step dropped into a lane at horizontal position x.
func (r *Runner) Drop(ctx context.Context, workflowID, stepID int64, lane string, x float64, opts Options) (*Commit, error) {
	return r.commit(ctx, GestureDrop, workflowID, opts, func(e *placement.Engine, snap *process.Snapshot) (placement.Request, bool, error) {
		return e.DropStep(snap, stepID, lane, x)
	})
}

// SetAddress commits an address typed by the user.
func (r *Runner) SetAddress(ctx context.Context, workflowID, stepID int64, address string, opts Options) (*Commit, error) {
	return r.commit(ctx, GestureEdit, workflowID, opts, func(_ *placement.Engine, snap *process.Snapshot) (placement.Request, bool, error) {
		st, ok := snap.Step(stepID)
		if !ok {
			return placement.Request{}, false, errors.New(errors.ErrCodeStepNotFound, "step %d not found", stepID)
		}
		norm, err := store.NormalizeAddress(address)
		if err != nil {
			return placement.Request{}, false, err
		}
		if placement.SameAddress(st.Address, norm) {
			return placement.Request{}, false, nil
		}
		return placement.Request{StepID: stepID, NewAddress: norm}, true, nil
	})
}

type plan func(e *placement.Engine, snap *process.Snapshot) (placement.Request, bool, error)

// commit loads a fresh snapshot, computes the request, persists it, and
// runs the pipeline again when something changed.
func (r *Runner) commit(ctx context.Context, gesture string, workflowID int64, opts Options, p plan) (*Commit, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	hooks := observability.Pipeline()

	snap, _, err := r.Load(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	engine := placement.New(opts.Geometry, opts.Logger)
	req, ok, err := p(engine, &snap)
	if err != nil {
		hooks.OnCommit(ctx, gesture, observability.CommitRejected)
		r.Logger.Debug("commit rejected", "gesture", gesture, "workflow", workflowID, "err", err)
		return nil, err
	}

	c := &Commit{Gesture: gesture, Request: req}
	if !ok {
		hooks.OnCommit(ctx, gesture, observability.CommitNoop)
		return c, nil
	}

	addr, err := r.Store.UpdateStepAddress(ctx, req.StepID, req.NewAddress)
	if err != nil {
		hooks.OnCommit(ctx, gesture, observability.CommitFailed)
		return nil, fmt.Errorf("update step %d: %w", req.StepID, err)
	}
	hooks.OnCommit(ctx, gesture, observability.CommitApplied)
	c.Applied = true
	c.Address = addr
	r.Logger.Info("step moved", "gesture", gesture, "step", req.StepID, "address", addr)

	// the store is the source of truth; lay out what it now holds
	c.Result, err = r.Execute(ctx, workflowID, opts)
	if err != nil {
		return c, fmt.Errorf("refresh: %w", err)
	}
	return c, nil
}
