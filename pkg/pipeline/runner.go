package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/cache"
	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/observability"
	"github.com/matzehuels/lanemap/pkg/process"
	"github.com/matzehuels/lanemap/pkg/store"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeDiagram  = "diagram"
	keyTypeArtifact = "artifact"
)

// Gestures reported with commit outcomes.
const (
	GestureDrag = "drag"
	GestureDrop = "drop"
	GestureEdit = "edit"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so commits and refreshes behave the same.
//
// The Runner keeps no pipeline results between calls. Multiple goroutines
// can share one Runner; concurrent commits are last-write-wins in the store.
type Runner struct {
	Store  store.Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the default keyer, and a nil logger uses the default logger. The
// store may be nil for runs that only lay out snapshots supplied by the
// caller.
func NewRunner(st store.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: st, Cache: c, Keyer: keyer, Logger: logger}
}

// Load reads a workflow snapshot from the store.
func (r *Runner) Load(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error) {
	if r.Store == nil {
		return process.Snapshot{}, nil, errors.New(errors.ErrCodeUnsupported, "no store configured")
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, workflowID)
	start := time.Now()

	snap, issues, err := r.Store.Snapshot(ctx, workflowID)
	hooks.OnLoadComplete(ctx, workflowID, len(snap.Steps), len(issues), time.Since(start), err)
	if err != nil {
		return process.Snapshot{}, nil, err
	}
	for _, is := range issues {
		r.Logger.Warn("step loaded with issue", "step", is.StepID, "err", is.Err)
	}
	return snap, issues, nil
}

// Execute loads a workflow and runs layout and render on it.
func (r *Runner) Execute(ctx context.Context, workflowID int64, opts Options) (*Result, error) {
	start := time.Now()
	snap, issues, err := r.Load(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result, err := r.ExecuteSnapshot(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	result.Issues = issues
	result.Stats.LoadTime = time.Since(start) - result.Stats.LayoutTime - result.Stats.RenderTime
	return result, nil
}

// ExecuteSnapshot runs layout and render on a snapshot the caller already
// holds.
func (r *Runner) ExecuteSnapshot(ctx context.Context, snap process.Snapshot, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Snapshot: snap, Stats: Stats{Steps: len(snap.Steps)}}

	layoutStart := time.Now()
	d, layoutHit, err := r.LayoutWithCacheInfo(ctx, snap, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Diagram = d
	result.CacheInfo.LayoutHit = layoutHit
	result.Stats.LayoutTime = time.Since(layoutStart)
	st := d.Stats()
	result.Stats.Nodes, result.Stats.Edges = st.Nodes, st.Edges
	result.Stats.Unplaced, result.Stats.Dropped = st.Unplaced, st.Dropped

	r.Logger.Info("computed layout",
		"workflow", snap.Workflow.ID,
		"nodes", st.Nodes,
		"edges", st.Edges,
		"unplaced", st.Unplaced,
		"dropped", st.Dropped,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	hash, artifacts, renderHit, err := r.renderWithHash(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.DiagramHash = hash
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// LayoutWithCacheInfo builds the diagram for a snapshot, reusing a cached
// one when the snapshot and layout options are unchanged.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, snap process.Snapshot, opts Options) (*diagram.Diagram, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()
	wfID := snap.Workflow.ID

	snapHash, err := cache.HashJSON(snap)
	if err != nil {
		return nil, false, fmt.Errorf("hash snapshot: %w", err)
	}
	key := r.Keyer.DiagramKey(snapHash, opts.DiagramKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if d, err := diagram.Unmarshal(data); err == nil {
				cacheHooks.OnCacheHit(ctx, keyTypeDiagram)
				return d, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", key, "err", err)
		}
		cacheHooks.OnCacheMiss(ctx, keyTypeDiagram)
	}

	hooks.OnLayoutStart(ctx, wfID, len(snap.Steps))
	start := time.Now()
	d := Layout(snap, opts)
	st := d.Stats()
	hooks.OnLayoutComplete(ctx, wfID, observability.LayoutStats{
		Nodes:    st.Nodes,
		Edges:    st.Edges,
		Unplaced: st.Unplaced,
		Dropped:  st.Dropped,
	}, time.Since(start), nil)

	if data, err := diagram.Marshal(d); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.DiagramTTL); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			cacheHooks.OnCacheSet(ctx, keyTypeDiagram, len(data))
		}
	}
	return d, false, nil
}

// Layout is LayoutWithCacheInfo without the cache hit flag.
func (r *Runner) Layout(ctx context.Context, snap process.Snapshot, opts Options) (*diagram.Diagram, error) {
	d, _, err := r.LayoutWithCacheInfo(ctx, snap, opts)
	return d, err
}

// RenderWithCacheInfo renders a diagram in every requested format. The
// cache is used only when every format is present.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d *diagram.Diagram, opts Options) (map[string][]byte, bool, error) {
	_, artifacts, hit, err := r.renderWithHash(ctx, d, opts)
	return artifacts, hit, err
}

// Render is RenderWithCacheInfo without the cache hit flag.
func (r *Runner) Render(ctx context.Context, d *diagram.Diagram, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}

func (r *Runner) renderWithHash(ctx context.Context, d *diagram.Diagram, opts Options) (string, map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return "", nil, false, err
	}
	cacheHooks := observability.Cache()

	data, err := diagram.Marshal(d)
	if err != nil {
		return "", nil, false, fmt.Errorf("serialize diagram for cache key: %w", err)
	}
	hash := cache.Hash(data)

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			cacheHooks.OnCacheHit(ctx, keyTypeArtifact)
			return hash, artifacts, true, nil
		}
		cacheHooks.OnCacheMiss(ctx, keyTypeArtifact)
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, err := Render(ctx, d, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return "", nil, false, err
	}

	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); err == nil {
			cacheHooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	return hash, artifacts, false, nil
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
