package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/ecoseed"
	audit_hook "github.com/xraph/ecoseed/audit_hook"
	"github.com/xraph/ecoseed/internal/config"
	"github.com/xraph/ecoseed/observability"
	"github.com/xraph/ecoseed/store"
	"github.com/xraph/ecoseed/store/memory"
	mongostore "github.com/xraph/ecoseed/store/mongo"
	pgstore "github.com/xraph/ecoseed/store/postgres"
	sqlitestore "github.com/xraph/ecoseed/store/sqlite"
)

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		drv := sqlitedriver.New()
		if err := drv.Open(ctx, sqlitestore.DSN(cfg.DSN)); err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("grove open: %w", err)
		}
		return sqlitestore.New(db), nil

	case config.BackendPostgres:
		drv := pgdriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("grove open: %w", err)
		}
		return pgstore.New(db), nil

	case config.BackendMongo:
		drv := mongodriver.New()
		if err := drv.Open(ctx, cfg.DSN, mongodriver.WithDatabase(cfg.Database)); err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("grove open: %w", err)
		}
		return mongostore.New(db), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// ledgerOptions translates cfg into ledger options. The audit trail is
// written to logger.
func ledgerOptions(cfg *config.Config, logger *slog.Logger) ([]ecoseed.Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return []ecoseed.Option{
		ecoseed.WithLogger(logger),
		ecoseed.WithLocation(loc),
		ecoseed.WithDefaultPageSize(cfg.Ledger.DefaultPageSize),
		ecoseed.WithMaxPageSize(cfg.Ledger.MaxPageSize),
		ecoseed.WithPlugin(audit_hook.New(slogRecorder(logger), audit_hook.WithLogger(logger))),
	}, nil
}

// metricsOption registers ledger metrics on reg.
func metricsOption(reg prometheus.Registerer) ecoseed.Option {
	return ecoseed.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg)))
}

// slogRecorder writes audit events as structured log records.
func slogRecorder(logger *slog.Logger) audit_hook.Recorder {
	audit := logger.With("component", "audit")
	return audit_hook.RecorderFunc(func(ctx context.Context, ev *audit_hook.AuditEvent) error {
		lvl := slog.LevelInfo
		if ev.Severity != audit_hook.SeverityInfo {
			lvl = slog.LevelWarn
		}
		audit.LogAttrs(ctx, lvl, ev.Action,
			slog.String("resource", ev.Resource),
			slog.String("resource_id", ev.ResourceID),
			slog.String("member_ref", ev.MemberRef),
			slog.String("category", ev.Category),
			slog.String("outcome", ev.Outcome),
			slog.String("reason", ev.Reason),
			slog.Any("metadata", ev.Metadata),
		)
		return nil
	})
}

// openLedger opens the store and starts a ledger. The caller must Stop it.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...ecoseed.Option) (*ecoseed.Ledger, error) {
	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	opts, err := ledgerOptions(cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	l := ecoseed.New(s, append(opts, extra...)...)
	if err := l.Start(ctx); err != nil {
		_ = l.Stop()
		return nil, err
	}
	return l, nil
}
