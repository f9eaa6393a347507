package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/process"
)

// runStoreSuite exercises the Store contract against one backend.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("workflows", func(t *testing.T) {
		s := open(t)
		_, err := s.CreateWorkflow(ctx, "  ", "")
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidName), "blank name: %v", err)

		b, err := s.CreateWorkflow(ctx, " Returns ", " after sales ")
		require.NoError(t, err)
		assert.Equal(t, "Returns", b.Name)
		assert.Equal(t, "after sales", b.Description)
		a, err := s.CreateWorkflow(ctx, "Claims", "")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		wfs, err := s.Workflows(ctx)
		require.NoError(t, err)
		require.Len(t, wfs, 2)
		assert.Equal(t, "Claims", wfs[0].Name)
		assert.Equal(t, "Returns", wfs[1].Name)
	})

	t.Run("snapshot", func(t *testing.T) {
		s := open(t)
		wf, err := s.CreateWorkflow(ctx, "Claims", "")
		require.NoError(t, err)

		for _, st := range []process.Step{
			{Name: "Pay", Kind: process.KindTask, Address: "C8"},
			{Name: "Receive", Kind: process.KindTask, Address: "A1",
				Connections: []process.Connection{{TargetAddress: "B1"}}},
			{Name: "Approve?", Kind: "decision", Address: "B1",
				Connections: []process.Connection{{Label: "Yes", TargetAddress: "C8"}}},
			{Name: "Backlog"},
		} {
			created, err := s.CreateStep(ctx, wf.ID, st)
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
		}
		_, err = s.SaveRow(ctx, wf.ID, process.Row{Letter: "b", Name: "Review"})
		require.NoError(t, err)

		snap, issues, err := s.Snapshot(ctx, wf.ID)
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, "Claims", snap.Workflow.Name)

		var addrs []string
		for _, st := range snap.Steps {
			addrs = append(addrs, st.Address)
		}
		assert.Equal(t, []string{"", "A1", "B1", "C8"}, addrs)
		assert.Equal(t, process.KindDecision, snap.Steps[2].Kind)
		assert.Equal(t, []process.Connection{{Label: "Yes", TargetAddress: "C8"}}, snap.Steps[2].Connections)
		assert.Equal(t, []process.Row{{Letter: "B", Name: "Review"}}, snap.Rows)

		_, _, err = s.Snapshot(ctx, 9999)
		assert.True(t, errors.Is(err, errors.ErrCodeWorkflowNotFound), "missing workflow: %v", err)
		_, err = s.CreateStep(ctx, 9999, process.Step{Name: "x"})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("update address", func(t *testing.T) {
		s := open(t)
		wf, err := s.CreateWorkflow(ctx, "Claims", "")
		require.NoError(t, err)
		st, err := s.CreateStep(ctx, wf.ID, process.Step{Name: "Triage", Address: "A1"})
		require.NoError(t, err)

		addr, err := s.UpdateStepAddress(ctx, st.ID, " c07 ")
		require.NoError(t, err)
		assert.Equal(t, "C7", addr)

		snap, _, err := s.Snapshot(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, "C7", snap.Steps[0].Address)

		entries, err := s.Audit(ctx, st.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, ActionCreate, entries[0].Action)
		last := entries[1]
		assert.Equal(t, ActionUpdatePosition, last.Action)
		assert.Equal(t, DefaultActor, last.ChangedBy)
		assert.Len(t, last.ID, 36)
		var changes map[string]string
		require.NoError(t, json.Unmarshal([]byte(last.Changes), &changes))
		assert.Equal(t, "C7", changes["grid_location"])

		for _, bad := range []string{"", "7C", "C0", "lobby"} {
			_, err := s.UpdateStepAddress(ctx, st.ID, bad)
			assert.True(t, errors.IsValidation(err), "address %q: %v", bad, err)
		}
		_, err = s.UpdateStepAddress(ctx, st.ID, "AA1")
		assert.True(t, errors.Is(err, errors.ErrCodeUnsupportedRow), "AA1: %v", err)

		_, err = s.UpdateStepAddress(ctx, 424242, "A1")
		assert.True(t, errors.Is(err, errors.ErrCodeStepNotFound), "missing step: %v", err)
	})

	t.Run("rows", func(t *testing.T) {
		s := open(t)
		wf, err := s.CreateWorkflow(ctx, "Claims", "")
		require.NoError(t, err)

		_, err = s.SaveRow(ctx, wf.ID, process.Row{Letter: "a", Name: "Intake"})
		require.NoError(t, err)
		row, err := s.SaveRow(ctx, wf.ID, process.Row{Letter: "A", Name: "Front desk"})
		require.NoError(t, err)
		assert.Equal(t, "A", row.Letter)

		snap, _, err := s.Snapshot(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, []process.Row{{Letter: "A", Name: "Front desk"}}, snap.Rows)

		_, err = s.SaveRow(ctx, wf.ID, process.Row{Name: "No letter"})
		assert.True(t, errors.IsValidation(err))
		_, err = s.SaveRow(ctx, wf.ID, process.Row{Letter: "AB"})
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		wf, err := s.CreateWorkflow(ctx, "Claims", "")
		require.NoError(t, err)
		st, err := s.CreateStep(ctx, wf.ID, process.Step{Name: "Gone", Address: "A1"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteStep(ctx, st.ID))
		snap, _, err := s.Snapshot(ctx, wf.ID)
		require.NoError(t, err)
		assert.Empty(t, snap.Steps)

		err = s.DeleteStep(ctx, st.ID)
		assert.True(t, errors.Is(err, errors.ErrCodeStepNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemory() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("LANEMAP_MONGO_URI")
	if uri == "" {
		t.Skip("LANEMAP_MONGO_URI not set")
	}
	n := 0
	runStoreSuite(t, func(t *testing.T) Store {
		n++
		s, err := ConnectMongo(context.Background(), uri, "lanemap_test_"+t.Name()[len("TestMongoStore/"):]+string(rune('a'+n)))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.client.Database(s.workflows.Database().Name()).Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}

func TestSQLiteMalformedConnections(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	wf, err := s.CreateWorkflow(ctx, "Claims", "")
	require.NoError(t, err)
	st, err := s.CreateStep(ctx, wf.ID, process.Step{Name: "Broken", Address: "A1"})
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE activities SET connections = '{not json' WHERE id = ?`, st.ID)
	require.NoError(t, err)

	snap, issues, err := s.Snapshot(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, snap.Steps, 1)
	assert.Empty(t, snap.Steps[0].Connections)
	require.Len(t, issues, 1)
	assert.Equal(t, st.ID, issues[0].StepID)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claims.yaml")

	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.Zero(t, s.WorkflowID())

	wf, err := s.CreateWorkflow(ctx, "Claims", "")
	require.NoError(t, err)
	_, err = s.CreateWorkflow(ctx, "Second", "")
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))

	st, err := s.CreateStep(ctx, wf.ID, process.Step{Name: "Receive", Address: "A1",
		Connections: []process.Connection{{TargetAddress: "B1"}}})
	require.NoError(t, err)
	_, err = s.UpdateStepAddress(ctx, st.ID, "b2")
	require.NoError(t, err)
	_, err = s.SaveRow(ctx, wf.ID, process.Row{Letter: "b", Name: "Review"})
	require.NoError(t, err)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, reopened.WorkflowID())
	snap, _, err := reopened.Snapshot(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, "B2", snap.Steps[0].Address)
	assert.Equal(t, st.ID, snap.Steps[0].ID)
	assert.Equal(t, []process.Row{{Letter: "B", Name: "Review"}}, snap.Rows)

	// ids keep increasing after a reload
	next, err := reopened.CreateStep(ctx, wf.ID, process.Step{Name: "Pay"})
	require.NoError(t, err)
	assert.Greater(t, next.ID, st.ID)
}

func TestFileStoreSuite(t *testing.T) {
	ctx := context.Background()
	// The shared suite creates two workflows, which a file store cannot
	// hold, so only the single-workflow parts run here.
	s, err := OpenFile(filepath.Join(t.TempDir(), "map.json"))
	require.NoError(t, err)
	wf, err := s.CreateWorkflow(ctx, "Claims", "")
	require.NoError(t, err)
	st, err := s.CreateStep(ctx, wf.ID, process.Step{Name: "Gone", Address: "A1"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteStep(ctx, st.ID))
	entries, err := s.Audit(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionDelete, entries[1].Action)
}

func TestOpenFileRejectsUnknownExtension(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "map.csv"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath), "err = %v", err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Config{Backend: "SQLite", DSN: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Backend: "file", Path: filepath.Join(t.TempDir(), "m.toml")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	for _, cfg := range []Config{
		{Backend: "file"},
		{Backend: "sqlite"},
		{Backend: "mongo"},
		{Backend: "postgres"},
	} {
		_, err := Open(ctx, cfg)
		assert.Error(t, err, "backend %q", cfg.Backend)
	}
}

func TestMemoryPut(t *testing.T) {
	m := NewMemory()
	snap := m.Put(process.Snapshot{
		Workflow: process.Workflow{ID: 5, Name: "Imported"},
		Rows:     []process.Row{{Letter: "c", Name: "Ops"}, {Letter: "??"}},
		Steps:    []process.Step{{ID: 10, Address: "A1"}, {Address: "B1"}},
	})
	assert.Equal(t, int64(5), snap.Workflow.ID)
	assert.Equal(t, int64(11), snap.Steps[1].ID)
	assert.Equal(t, []process.Row{{Letter: "C", Name: "Ops"}}, snap.Rows)

	wf, err := m.CreateWorkflow(context.Background(), "Next", "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), wf.ID)
}
