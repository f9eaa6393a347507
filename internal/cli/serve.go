package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lanemap/internal/metrics"
	"github.com/matzehuels/lanemap/pkg/server"
	"github.com/matzehuels/lanemap/pkg/store"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		snapshot  string
		noCache   bool
		noMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the process map HTTP API",
		Long: `Serve the process map HTTP API. The store and cache come from the config
file; --snapshot serves a single snapshot file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, snapshot, noCache, noMetrics)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "serve this snapshot file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, snapshot string, noCache, noMetrics bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	storeCfg := cfg.Store
	if snapshot != "" {
		storeCfg = store.Config{Backend: store.BackendFile, Path: snapshot}
	}
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", storeCfg.Backend, err)
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

	var metricsHandler http.Handler
	if cfg.Server.Metrics && !noMetrics {
		m := metrics.New()
		m.Install()
		metricsHandler = m.Handler()
	}

	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := server.New(server.Config{
		Runner:  runner,
		Options: opts,
		Metrics: metricsHandler,
		Logger:  c.Logger,
	})
	printSuccess("Serving on %s", addr)
	printDetail("store: %s", storeBackend(storeCfg))
	return srv.ListenAndServe(ctx, addr)
}

func storeBackend(cfg store.Config) string {
	if cfg.Backend == "" {
		return store.BackendMemory
	}
	return cfg.Backend
}
