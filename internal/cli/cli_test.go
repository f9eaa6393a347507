package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/errors"
	snapio "github.com/matzehuels/lanemap/pkg/io"
)

const snapshotJSON = `{
  "workflow": {"id": 3, "name": "Claims"},
  "rows": [{"letter": "a", "name": "Intake"}],
  "steps": [
    {"id": 1, "name": "Receive", "kind": "task", "address": "A1", "connections": "[{\"next\":\"B1\"}]"},
    {"id": 2, "name": "Assess", "kind": "task", "address": "B1"},
    {"id": 3, "name": "Archive", "kind": "task", "address": null}
  ]
}`

// setup isolates config and cache directories and writes the sample
// snapshot.
func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "claims.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0644))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func address(t *testing.T, path string, stepID int64) string {
	t.Helper()
	snap, _, err := snapio.ImportSnapshot(path)
	require.NoError(t, err)
	st, ok := snap.Step(stepID)
	require.True(t, ok, "step %d missing", stepID)
	return st.Address
}

func TestLayoutCommand(t *testing.T) {
	path := setup(t)
	require.NoError(t, run(t, "layout", path))

	d, err := diagram.ReadFile(strings.TrimSuffix(path, ".json") + ".diagram.json")
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 2)
	assert.Len(t, d.Edges, 1)
	require.Len(t, d.Unplaced, 1)
	assert.Equal(t, int64(3), d.Unplaced[0].StepID)

	out := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, run(t, "layout", path, "-o", out, "--no-cache"))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestLayoutCommandErrors(t *testing.T) {
	setup(t)
	assert.Error(t, run(t, "layout", filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, run(t, "layout", "snapshot.csv"))
	assert.Error(t, run(t, "layout"))
}

func TestRenderCommand(t *testing.T) {
	path := setup(t)
	require.NoError(t, run(t, "render", path, "-f", "svg,dot,json", "--title"))

	base := strings.TrimSuffix(path, ".json")
	svg, err := os.ReadFile(base + ".svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), `id="step-1"`)
	assert.Contains(t, string(svg), "Claims")

	dot, err := os.ReadFile(base + ".dot")
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"step-1" -> "step-2"`)

	_, err = diagram.ReadFile(base + ".diagram.json")
	assert.NoError(t, err)

	err = run(t, "render", path, "-f", "png")
	assert.True(t, errors.IsValidation(err), "png should be rejected: %v", err)
	assert.Error(t, run(t, "render", path, "--renderer", "cairo"))
}

func TestMoveCommand(t *testing.T) {
	path := setup(t)

	require.NoError(t, run(t, "move", path, "--step", "2", "--x", "410", "--y", "232"))
	assert.Equal(t, "B2", address(t, path, 2))

	// already there
	require.NoError(t, run(t, "move", path, "--step", "2", "--x", "400", "--y", "230"))
	assert.Equal(t, "B2", address(t, path, 2))

	err := run(t, "move", path, "--step", "2", "--x", "400", "--y", "-1000")
	assert.Equal(t, errors.ErrCodeOutOfRange, errors.GetCode(err))

	err = run(t, "move", path, "--step", "42", "--x", "400", "--y", "230")
	assert.Equal(t, errors.ErrCodeStepNotFound, errors.GetCode(err))

	assert.Error(t, run(t, "move", path, "--step", "2"), "missing required flags")
}

func TestDropCommand(t *testing.T) {
	path := setup(t)

	require.NoError(t, run(t, "drop", path, "--step", "3", "--lane", "a", "--x", "650"))
	assert.Equal(t, "A3", address(t, path, 3))

	err := run(t, "drop", path, "--step", "3", "--lane", "AA", "--x", "650")
	assert.Error(t, err)
	assert.Equal(t, "A3", address(t, path, 3))
}

func TestPositionCommand(t *testing.T) {
	path := setup(t)

	require.NoError(t, run(t, "position", path, "--step", "1", "--address", "c05"))
	assert.Equal(t, "C5", address(t, path, 1))

	err := run(t, "position", path, "--step", "1", "--address", "5C")
	assert.True(t, errors.IsValidation(err), "malformed address: %v", err)
	assert.Equal(t, "C5", address(t, path, 1))
}

func TestCacheCommands(t *testing.T) {
	path := setup(t)
	require.NoError(t, run(t, "layout", path))

	dir, err := cacheDir()
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "layout should populate the file cache")

	require.NoError(t, run(t, "cache", "clear"))
	entries, _ = os.ReadDir(dir)
	assert.Empty(t, entries)

	require.NoError(t, run(t, "cache", "path"))
}

func TestConfigFlag(t *testing.T) {
	path := setup(t)
	cfg := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[geometry]\ncolumn_width = 100.0\n[cache]\nbackend = \"none\"\n"), 0644))

	// column 3 starts at 150 + 2*100
	require.NoError(t, run(t, "--config", cfg, "drop", path, "--step", "3", "--lane", "B", "--x", "350"))
	assert.Equal(t, "B3", address(t, path, 3))

	require.NoError(t, os.WriteFile(cfg, []byte("[cache]\nbackend = \"memcached\"\n"), 0644))
	assert.Error(t, run(t, "--config", cfg, "layout", path))
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		assert.NoError(t, run(t, "completion", shell), shell)
	}
	assert.Error(t, run(t, "completion", "tcsh"))
}
