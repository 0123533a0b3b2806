package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/api"
	"github.com/matzehuels/constellation/pkg/observability/prom"
	"github.com/matzehuels/constellation/pkg/pipeline"
)

type serveOpts struct {
	source    sourceFlags
	addr      string
	noMetrics bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matrix, layout and render endpoints over HTTP",
		Long: `Serve the HTTP API:

  GET  /api/critical-terms/cooccurrence-matrix
  GET  /api/constellation/layout
  GET  /api/constellation/render.{svg,png,pdf,json,dot}
  POST /api/constellation/click
  GET  /health, /ready, /metrics

The matrix source is the configured storage backend unless overridden.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	src, closeSrc, err := c.newSource(ctx, opts.source)
	if err != nil {
		return err
	}
	defer closeSrc()

	// Concurrent requests for one folder and term share a fetch.
	runner, err := c.newRunner(ctx, pipeline.NewQuerySource(src))
	if err != nil {
		return err
	}
	defer runner.Close()

	// Every request is a mount: it refetches unless it passes refresh=false.
	defaults := c.baseOptions()
	defaults.Refresh = true

	srv := c.Config.Server
	sopts := api.ServerOptions{
		Logger:      logger,
		Defaults:    defaults,
		CORSOrigins: srv.CORSOrigins,
		OnBubbleClick: func(termID, thinkerID, thinkerName string) {
			logger.Info("bubble clicked", "term_id", termID, "thinker_id", thinkerID, "thinker", thinkerName)
		},
	}
	if ss, ok := src.(*pipeline.StoreSource); ok {
		sopts.Ready = ss.Store
	}
	if !opts.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom.New(reg).Register()
		sopts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	addr := srv.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	printSuccess("Serving %s on %s", src.Name(), StyleLink.Render(fmt.Sprintf("http://%s", displayAddr(addr))))
	printDetail("Press Ctrl+C to stop")
	return api.NewServer(runner, sopts).ListenAndServe(ctx, addr, srv.ReadTimeout.Duration, srv.WriteTimeout.Duration)
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
