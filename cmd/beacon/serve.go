package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/beacon-dev/beacon/pkg/bridge"
	"github.com/beacon-dev/beacon/pkg/observe"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a topology to web clients",
		Long: `Build the graph declared in beacon.yaml and serve it over HTTP:
each node is reachable under /nodes/{name} for SSE and WebSocket
streaming, plus a Prometheus /metrics endpoint.

Examples:
  beacon serve
  beacon serve --port=9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, host)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to beacon.yaml (default ./beacon.yaml)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from beacon.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from beacon.yaml)")

	return cmd
}

func runServe(configPath string, port int, host string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Serve.Port = port
	}
	if host != "" {
		cfg.Serve.Host = host
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	g, err := cfg.Build()
	if err != nil {
		return err
	}
	defer g.Dispose()

	registry := prometheus.NewRegistry()
	metrics, err := observe.NewMetrics(
		observe.WithRegistry(registry),
		observe.WithNamespace("beacon"),
	)
	if err != nil {
		return err
	}

	b := bridge.New(bridge.WithLogger(logger))
	for _, name := range g.Names() {
		n := g.Node(name)
		b.Expose(name, n)
		if cfg.Serve.Metrics {
			if err := metrics.Tap(name, n); err != nil {
				return fmt.Errorf("tap %s: %w", name, err)
			}
		}
	}

	r := chi.NewRouter()
	r.Mount("/", b.Routes())
	if cfg.Serve.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{
		Addr:    cfg.ServeAddress(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "nodes", len(cfg.Nodes))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
