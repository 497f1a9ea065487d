package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/database"
	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/health"
	"github.com/qtc-mcp-server/internal/history"
	"github.com/qtc-mcp-server/internal/service"
	"github.com/qtc-mcp-server/pkg/qtc"
)

const version = "v0.1.0"

// stack holds the long-lived dependencies of the server and closes them in reverse order.
type stack struct {
	service *service.QTcService
	checker *health.Checker
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStack(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*stack, error) {
	st := &stack{checker: health.NewChecker(version, 5*time.Second, logger)}

	criteria, err := service.LoadCriteria(cfg.Engine.CriteriaFile)
	if err != nil {
		return nil, err
	}
	formulas := qtc.DefaultFormulaRegistry()
	defaults, err := service.ParseDefaults(cfg.Engine.DefaultFormula, cfg.Engine.DefaultCriterion, cfg.Engine.DefaultUnits, formulas, criteria)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{service.WithDefaults(defaults)}

	recent, err := history.NewRecentCache(cfg.Storage.RecentSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent cache: %w", err)
	}
	opts = append(opts, service.WithRecentCache(recent))

	store, err := openStore(ctx, cfg, logger, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	if store != nil {
		breaker := history.NewBreakerStore(store, history.BreakerSettings{
			MaxRequests: cfg.Storage.BreakerMaxRequests,
			Interval:    cfg.Storage.BreakerInterval,
			Timeout:     cfg.Storage.BreakerTimeout,
		}, logger)
		opts = append(opts, service.WithStore(breaker))
		st.closers = append(st.closers, func() { _ = breaker.Close() })
		st.checker.Register(health.Probe{
			Name:     "history",
			Critical: false,
			Check: func(ctx context.Context) error {
				_, err := breaker.Count(ctx)
				return err
			},
		})
	}

	if cfg.Cache.RedisURL != "" {
		cache, err := history.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			// the shared cache is an optimization
			logger.WithError(err).Warn("Redis unavailable, continuing without shared cache")
		} else {
			opts = append(opts, service.WithSharedCache(cache))
			st.closers = append(st.closers, func() { _ = cache.Close() })
			st.checker.Register(health.Probe{Name: "redis", Critical: false, Check: cache.Ping})
		}
	}

	st.service = service.NewQTcService(logger, formulas, criteria, opts...)
	logger.WithFields(logrus.Fields{
		"storage":           cfg.Storage.Driver,
		"formulas":          formulas.Len(),
		"criteria":          criteria.Len(),
		"default_formula":   defaults.Formula,
		"default_criterion": defaults.Criterion,
	}).Info("QTc service ready")
	return st, nil
}

// openStore opens the configured history store, or returns nil when history is disabled.
func openStore(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, st *stack) (history.Store, error) {
	switch cfg.Storage.Driver {
	case "none":
		return nil, nil

	case "sqlite":
		store, err := history.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}
		st.checker.Register(health.Probe{Name: "sqlite", Critical: true, Check: store.Ping})
		return store, nil

	case "postgres":
		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.checker.Register(health.Probe{Name: "database", Critical: true, Check: db.Health})

		if cfg.Database.AutoMigrate {
			if err := migrate(ctx, config.DatabaseURL(cfg.Database), logger); err != nil {
				return nil, err
			}
		}

		store, err := history.NewPostgresStore(db.SQL())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres history: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func migrate(ctx context.Context, databaseURL string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(databaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
