// Package cli implements the lanemap command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/internal/config"
	"github.com/matzehuels/lanemap/pkg/buildinfo"
	"github.com/matzehuels/lanemap/pkg/cache"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/layout"
	"github.com/matzehuels/lanemap/pkg/pipeline"
	"github.com/matzehuels/lanemap/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "lanemap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Lanemap lays out swimlane process maps",
		Long: `Lanemap turns workflow snapshots (steps addressed by swimlane letter and
column number) into laid out process maps, and commits drag and drop
gestures back to the snapshot.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/lanemap/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.dropCommand())
	root.AddCommand(c.positionCommand())
	root.AddCommand(c.placeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration file once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over st for CLI use.
func (c *CLI) newRunner(ctx context.Context, st store.Store, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(st, ch, nil, c.Logger), nil
}

// newCache builds the configured cache. A file cache whose directory
// cannot be determined degrades to no caching.
func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch strings.ToLower(cfg.Backend) {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.OpenRedis(ctx, cfg.Redis.Options())
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// openSnapshot opens a snapshot file as a store and returns the id of the
// workflow it holds.
func openSnapshot(path string) (*store.File, int64, error) {
	f, err := store.OpenFile(path)
	if err != nil {
		return nil, 0, err
	}
	id := f.WorkflowID()
	if id == 0 {
		f.Close()
		return nil, 0, errors.New(errors.ErrCodeWorkflowNotFound, "%s holds no workflow", path)
	}
	return f, id, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/lanemap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// baseOptions returns pipeline options seeded from the config file.
func (c *CLI) baseOptions() (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		Geometry: cfg.Geometry,
		Layout: layout.Config{
			MinColumns:    cfg.Layout.MinColumns,
			ColumnPadding: cfg.Layout.ColumnPadding,
		},
		Logger: c.Logger,
	}
	opts.SetLayoutDefaults()
	return opts, nil
}
