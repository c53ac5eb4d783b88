package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/mcp"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/version"
)

const metricsShutdownTimeout = 5 * time.Second

// NewServeCmd creates the 'serve' command for running the MCP server.
//
// The server exposes 2 tools via stdio transport:
// - find_tools, list_tools
func NewServeCmd(opts *GlobalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the tool-preselect MCP server using stdio transport.

The server exposes 2 tools to AI clients:
  • find_tools - Select the catalog tools that fit a request
  • list_tools - List the registered tools, optionally for one group

The catalog is indexed on first start when it is empty. With --metrics-addr
Prometheus metrics are served on /metrics.`,
		Example: `  # Run directly
  tool-preselect serve

  # With metrics
  tool-preselect serve --metrics-addr 127.0.0.1:9464

  # Add to Claude Code
  claude mcp add tool-preselect -- tool-preselect serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default: settings.metricsAddr)")

	return cmd
}

// runServe starts the MCP server and shuts down on SIGINT/SIGTERM/SIGQUIT or when stdin closes.
func runServe(parent context.Context, opts *GlobalOptions, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := NewApp(ctx, opts, appNeeds{rewriter: true, history: true, metrics: true, autoIndex: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if metricsAddr == "" {
		metricsAddr = app.Config.Settings.MetricsAddr
	}
	if metricsAddr != "" {
		shutdown, err := startMetricsServer(metricsAddr, app.Metrics, app.Logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	server := mcp.NewServer(app.Selector, app.Catalog, version.Version, app.Logger)
	app.Logger.Info("serving MCP over stdio",
		zap.String("version", version.Version),
		zap.Bool("hyde", app.Selector.HasRewriter()),
	)

	err = server.Run(ctx)
	if ctx.Err() != nil {
		app.Logger.Info("shutdown complete")
		return nil
	}
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startMetricsServer serves /metrics on addr and returns a shutdown func.
func startMetricsServer(addr string, m metrics.Metrics, logger *zap.Logger) (func(), error) {
	prom, ok := m.(*metrics.Prometheus)
	if !ok {
		return nil, errors.New("metrics are not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
