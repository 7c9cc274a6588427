package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/api"
	"github.com/xraph/ecoseed/events"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the ledger HTTP API. Prometheus metrics are served on /metrics when
server.metrics is enabled, and postings are published to AMQP when amqp.url
is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		extra   []ecoseed.Option
		apiOpts = []api.Option{
			api.WithLogger(logger),
			api.WithIdentity(api.HeaderIdentity{Header: cfg.Server.MemberHeader}),
			api.WithTimeout(cfg.Server.Timeout.Duration),
		}
		reg *prometheus.Registry
	)
	if cfg.Server.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		extra = append(extra, metricsOption(reg))
		apiOpts = append(apiOpts, api.WithMetrics(reg))
	}
	if cfg.AMQP.URL != "" {
		pub, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, events.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		extra = append(extra, ecoseed.WithPlugin(pub))
		logger.Info("publishing postings", "exchange", cfg.AMQP.Exchange)
	}

	l, err := openLedger(ctx, cfg, logger, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Stop(); err != nil {
			logger.Error("ledger stop", "error", err)
		}
	}()

	r := chi.NewRouter()
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	r.Mount("/", api.NewServer(l, apiOpts...).Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ecoseed listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
