// Package app assembles the services from configuration: storage backend,
// stats cache, event publishers and token issuer.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/db"
	"github.com/Clark-Hu/store-ratings/internal/accounts"
	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/cache"
	"github.com/Clark-Hu/store-ratings/internal/config"
	"github.com/Clark-Hu/store-ratings/internal/dashboard"
	"github.com/Clark-Hu/store-ratings/internal/events"
	"github.com/Clark-Hu/store-ratings/internal/memory"
	"github.com/Clark-Hu/store-ratings/internal/metrics"
	"github.com/Clark-Hu/store-ratings/internal/ratings"
	"github.com/Clark-Hu/store-ratings/internal/repository"
	"github.com/Clark-Hu/store-ratings/internal/seed"
	"github.com/Clark-Hu/store-ratings/internal/store"
	"github.com/Clark-Hu/store-ratings/internal/stores"
)

// App holds the wired services and the resources behind them.
type App struct {
	Accounts  *accounts.Service
	Stores    *stores.Service
	Ratings   *ratings.Service
	Dashboard *dashboard.Service
	Tokens    *auth.Issuer

	checks  map[string]func(context.Context) error
	closers []func()
}

type backend struct {
	users     accounts.Repository
	directory ratings.UserDirectory
	stores    stores.Repository
	ledger    ratings.Ledger
	counter   dashboard.Counter
}

// Build connects every configured dependency. Close must be called on the
// returned App even when only part of it is used.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{checks: make(map[string]func(context.Context) error)}

	be, err := a.openBackend(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var statsCache cache.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "store_ratings")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.checks["redis"] = rc.HealthCheck
		a.closers = append(a.closers, func() { _ = rc.Close() })
		statsCache = rc
		logger.Info().Str("addr", cfg.RedisAddr).Msg("redis stats cache enabled")
	} else {
		statsCache = cache.NewMemory()
	}
	a.Dashboard = dashboard.NewService(be.counter, statsCache,
		time.Duration(cfg.StatsCacheTTLSecs)*time.Second,
		logger.With().Str("component", "dashboard").Logger())

	publishers := []events.Publisher{a.Dashboard.Invalidator()}
	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		publishers = append(publishers, pub)
		logger.Info().Str("exchange", cfg.AMQPExchange).Msg("amqp event publisher enabled")
	}
	publisher := events.Fanout(publishers...)

	a.Tokens = auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	a.Accounts = accounts.NewService(be.users, a.Tokens,
		accounts.WithBcryptCost(cfg.BcryptCost),
		accounts.WithPublisher(publisher),
		accounts.WithLogger(logger.With().Str("component", "accounts").Logger()),
	)
	a.Stores = stores.NewService(be.stores, be.directory,
		stores.WithPublisher(publisher),
		stores.WithLogger(logger.With().Str("component", "stores").Logger()),
	)
	a.Ratings = ratings.NewService(be.directory, be.ledger,
		ratings.WithPublisher(publisher),
		ratings.WithLogger(logger.With().Str("component", "ratings").Logger()),
	)

	if cfg.SeedDemo {
		svc := seed.Services{Accounts: a.Accounts, Stores: a.Stores, Ratings: a.Ratings}
		if _, err := seed.Apply(ctx, svc, seed.Demo(), logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	return a, nil
}

func (a *App) openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backend, error) {
	if cfg.StorageBackend != config.BackendPostgres {
		mem := memory.New()
		a.checks["storage"] = mem.HealthCheck
		logger.Info().Str("backend", config.BackendMemory).Msg("storage ready")
		return backend{users: mem, directory: mem, stores: mem, ledger: mem, counter: mem}, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()
	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return backend{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, st.Close)
	a.checks["storage"] = st.HealthCheck

	poolMetrics := st.Collector()
	if err := metrics.Registry.Register(poolMetrics); err != nil {
		logger.Warn().Err(err).Msg("register pool metrics")
	} else {
		a.closers = append(a.closers, func() { metrics.Registry.Unregister(poolMetrics) })
	}

	if cfg.DBAutoMigrate {
		if err := st.Migrate(ctx, db.Migrations); err != nil {
			return backend{}, err
		}
	}

	repo := repository.New(st)
	logger.Info().Str("backend", config.BackendPostgres).Msg("storage ready")
	return backend{
		users:     repo.Users,
		directory: repo.Users,
		stores:    repo.Stores,
		ledger:    repo.Ratings,
		counter:   repo.Stores,
	}, nil
}

// HealthCheck runs every dependency check and joins the failures.
func (a *App) HealthCheck(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
