package pipeline

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/lanemap/pkg/cache"
	"github.com/matzehuels/lanemap/pkg/connect"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/layout"
	"github.com/matzehuels/lanemap/pkg/observability"
	"github.com/matzehuels/lanemap/pkg/process"
	"github.com/matzehuels/lanemap/pkg/store"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"svg", false},
		{"dot", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateRenderer(t *testing.T) {
	for _, r := range []string{"native", "graphviz"} {
		if err := ValidateRenderer(r); err != nil {
			t.Errorf("ValidateRenderer(%q) = %v", r, err)
		}
	}
	if err := ValidateRenderer("cairo"); err == nil {
		t.Error("unknown renderer should fail")
	}
}

func TestParseFormats(t *testing.T) {
	got := ParseFormats(" svg, dot,,SVG ,json")
	want := []string{"svg", "dot", "json"}
	if !slices.Equal(got, want) {
		t.Errorf("ParseFormats = %v, want %v", got, want)
	}
	if got := ParseFormats(""); got != nil {
		t.Errorf("ParseFormats(\"\") = %v, want nil", got)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Geometry.ColumnWidth != 250 || opts.Geometry.RowHeight != 180 {
		t.Errorf("geometry = %+v, want defaults", opts.Geometry)
	}
	if !slices.Equal(opts.Formats, []string{FormatSVG}) {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Renderer != RendererNative {
		t.Errorf("Renderer = %q", opts.Renderer)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	bad := Options{Formats: []string{"gif"}}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("invalid format should fail")
	}
	neg := Options{}
	neg.Geometry.GutterWidth = -1
	if err := neg.ValidateForLayout(); err == nil {
		t.Error("negative gutter should fail")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Renderer: RendererGraphviz, Title: true}
	if got := opts.ArtifactKeyOpts(FormatSVG); got.Renderer != RendererGraphviz || got.Theme != "title" {
		t.Errorf("svg key opts = %+v", got)
	}
	if got := opts.ArtifactKeyOpts(FormatJSON); got.Renderer != "" {
		t.Errorf("json key opts should not depend on renderer: %+v", got)
	}
}

func newFixture(t *testing.T) (*store.Memory, int64) {
	t.Helper()
	st := store.NewMemory()
	snap := st.Put(process.Snapshot{
		Workflow: process.Workflow{Name: "Claims"},
		Steps: []process.Step{
			{ID: 1, Name: "Receive", Kind: process.KindTask, Address: "A1",
				Connections: []process.Connection{{TargetAddress: "B1"}}},
			{ID: 2, Name: "Assess", Kind: process.KindTask, Address: "B1"},
			{ID: 3, Name: "Decide", Kind: process.KindDecision, Address: "C7",
				Connections: []process.Connection{{TargetAddress: "C8", Label: "Approve"}}},
			{ID: 4, Name: "Pay", Kind: process.KindTask, Address: "C8"},
			{ID: 5, Name: "Notify", Kind: process.KindTask},
		},
		Rows: []process.Row{{Letter: "A", Name: "Intake"}},
	})
	return st, snap.Workflow.ID
}

func TestRunnerExecute(t *testing.T) {
	ctx := context.Background()
	st, wf := newFixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(st, c, nil, nil)

	opts := Options{Formats: []string{FormatSVG, FormatDOT, FormatJSON}}
	res, err := r.Execute(ctx, wf, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Steps != 5 || res.Stats.Nodes != 4 || res.Stats.Edges != 2 || res.Stats.Unplaced != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	for _, f := range opts.Formats {
		if len(res.Artifacts[f]) == 0 {
			t.Errorf("missing %s artifact", f)
		}
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if res.DiagramHash == "" {
		t.Error("DiagramHash should be set")
	}

	again, err := r.Execute(ctx, wf, opts)
	if err != nil {
		t.Fatalf("Execute again: %v", err)
	}
	if !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v, want hits", again.CacheInfo)
	}
	if again.DiagramHash != res.DiagramHash {
		t.Error("diagram hash should be stable")
	}

	refreshed, err := r.Execute(ctx, wf, Options{Formats: opts.Formats, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.LayoutHit {
		t.Error("Refresh should skip the cache")
	}
}

func TestRunnerLayoutConfigMissesCache(t *testing.T) {
	ctx := context.Background()
	st, wf := newFixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(st, c, nil, nil)
	snap, _, err := st.Snapshot(ctx, wf)
	if err != nil {
		t.Fatal(err)
	}

	base, hit, err := r.LayoutWithCacheInfo(ctx, snap, Options{})
	if err != nil || hit {
		t.Fatalf("first layout: hit %v, err %v", hit, err)
	}

	tests := []struct {
		name string
		cfg  layout.Config
	}{
		{"label x", layout.Config{LabelX: 99}},
		{"label offset", layout.Config{LabelOffsetY: 7}},
		{"divider extra", layout.Config{DividerExtra: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, hit, err := r.LayoutWithCacheInfo(ctx, snap, Options{Layout: tt.cfg})
			if err != nil {
				t.Fatal(err)
			}
			if hit {
				t.Error("changed layout config should miss the cache")
			}
			want := Layout(snap, Options{Layout: tt.cfg})
			if d.Width != want.Width || d.Lanes[0].LabelX != want.Lanes[0].LabelX || d.Lanes[0].LabelY != want.Lanes[0].LabelY {
				t.Errorf("diagram = width %v lane %+v, want width %v lane %+v", d.Width, d.Lanes[0], want.Width, want.Lanes[0])
			}
		})
	}

	if d, hit, _ := r.LayoutWithCacheInfo(ctx, snap, Options{}); !hit || d.Width != base.Width {
		t.Errorf("default options: hit %v width %v, want cached width %v", hit, d.Width, base.Width)
	}
}

func TestRunnerNoStore(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if _, err := r.Execute(context.Background(), 1, Options{}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Execute without store = %v, want UNSUPPORTED", err)
	}

	res, err := r.ExecuteSnapshot(context.Background(), process.Snapshot{}, Options{Formats: []string{FormatJSON}})
	if err != nil {
		t.Fatalf("ExecuteSnapshot: %v", err)
	}
	if len(res.Diagram.Lanes) != 1 || res.Diagram.Lanes[0].Letter != "A" {
		t.Errorf("empty snapshot lanes = %+v, want lane A", res.Diagram.Lanes)
	}
}

func TestRunnerExecuteMissingWorkflow(t *testing.T) {
	st, _ := newFixture(t)
	r := NewRunner(st, nil, nil, nil)
	if _, err := r.Execute(context.Background(), 99, Options{}); !errors.Is(err, errors.ErrCodeWorkflowNotFound) {
		t.Errorf("err = %v, want WORKFLOW_NOT_FOUND", err)
	}
}

func TestRunnerDrag(t *testing.T) {
	ctx := context.Background()
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	c, err := r.Drag(ctx, wf, 1, 410, 232, Options{})
	if err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if !c.Applied || c.Address != "B2" || c.Request.NewAddress != "B2" {
		t.Errorf("commit = %+v, want applied B2", c)
	}
	if c.Result == nil {
		t.Fatal("applied commit should carry a refreshed result")
	}
	if n, ok := c.Result.Diagram.Node(1); !ok || n.Address != "B2" || n.X != 400 || n.Y != 230 {
		t.Errorf("refreshed node = %+v", n)
	}

	audit, err := st.Audit(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) == 0 || audit[len(audit)-1].Action != store.ActionUpdatePosition {
		t.Errorf("audit = %+v, want UPDATE_POSITION", audit)
	}
}

func TestRunnerDragNoop(t *testing.T) {
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	c, err := r.Drag(context.Background(), wf, 1, 160, 40, Options{})
	if err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if c.Applied || c.Result != nil {
		t.Errorf("commit = %+v, want no-op", c)
	}
	audit, _ := st.Audit(context.Background(), 1)
	for _, e := range audit {
		if e.Action == store.ActionUpdatePosition {
			t.Error("no-op drag should not write to the store")
		}
	}
}

func TestRunnerDragRejected(t *testing.T) {
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	if _, err := r.Drag(context.Background(), wf, 1, 150, -1000, Options{}); !errors.Is(err, errors.ErrCodeOutOfRange) {
		t.Errorf("err = %v, want OUT_OF_RANGE", err)
	}
	if _, err := r.Drag(context.Background(), wf, 42, 150, 50, Options{}); !errors.Is(err, errors.ErrCodeStepNotFound) {
		t.Errorf("err = %v, want STEP_NOT_FOUND", err)
	}
}

func TestRunnerDrop(t *testing.T) {
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	c, err := r.Drop(context.Background(), wf, 5, "c", 100, Options{})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if !c.Applied || c.Address != "C1" {
		t.Errorf("commit = %+v, want applied C1", c)
	}
	if c.Result.Stats.Unplaced != 0 {
		t.Errorf("unplaced after drop = %d", c.Result.Stats.Unplaced)
	}

	if _, err := r.Drop(context.Background(), wf, 5, "AA", 100, Options{}); err == nil {
		t.Error("multi-letter lane should be rejected")
	}
}

func TestRunnerSetAddress(t *testing.T) {
	ctx := context.Background()
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	c, err := r.SetAddress(ctx, wf, 4, "c09", Options{})
	if err != nil {
		t.Fatalf("SetAddress: %v", err)
	}
	if !c.Applied || c.Address != "C9" {
		t.Errorf("commit = %+v, want C9", c)
	}

	c, err = r.SetAddress(ctx, wf, 4, "C9", Options{})
	if err != nil || c.Applied {
		t.Errorf("same address: commit %+v err %v, want no-op", c, err)
	}

	tests := []struct {
		step int64
		addr string
		code errors.Code
	}{
		{4, "", errors.ErrCodeInvalidInput},
		{4, "9C", errors.ErrCodeInvalidFormat},
		{4, "AA3", errors.ErrCodeUnsupportedRow},
		{77, "A1", errors.ErrCodeStepNotFound},
	}
	for _, tt := range tests {
		if _, err := r.SetAddress(ctx, wf, tt.step, tt.addr, Options{}); !errors.Is(err, tt.code) {
			t.Errorf("SetAddress(%d, %q) = %v, want %s", tt.step, tt.addr, err, tt.code)
		}
	}
}

func TestMoveTargetDropsEdge(t *testing.T) {
	ctx := context.Background()
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	c, err := r.SetAddress(ctx, wf, 2, "C1", Options{})
	if err != nil {
		t.Fatalf("SetAddress: %v", err)
	}
	d := c.Result.Diagram
	for _, e := range d.Edges {
		if e.SourceStepID == 1 {
			t.Errorf("edge from step 1 should be dropped, got %+v", e)
		}
	}
	if len(d.Dropped) != 1 || d.Dropped[0].Reason != connect.ReasonEmptyLane {
		t.Errorf("dropped = %+v, want one %q", d.Dropped, connect.ReasonEmptyLane)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	outcomes []string
	layouts  int
}

func (h *recordingHooks) OnCommit(_ context.Context, gesture, outcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, gesture+":"+outcome)
}

func (h *recordingHooks) OnLayoutComplete(context.Context, int64, observability.LayoutStats, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layouts++
}

func TestCommitHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)

	ctx := context.Background()
	st, wf := newFixture(t)
	r := NewRunner(st, nil, nil, nil)

	_, _ = r.Drag(ctx, wf, 1, 150, 50, Options{})
	_, _ = r.Drag(ctx, wf, 1, 150, 5000, Options{})
	_, _ = r.Drop(ctx, wf, 5, "B", 700, Options{})

	want := []string{"drag:noop", "drag:rejected", "drop:applied"}
	if !slices.Equal(h.outcomes, want) {
		t.Errorf("outcomes = %v, want %v", h.outcomes, want)
	}
	if h.layouts != 1 {
		t.Errorf("layouts = %d, want 1 refresh", h.layouts)
	}
}
