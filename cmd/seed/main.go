package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Clark-Hu/store-ratings/internal/app"
	"github.com/Clark-Hu/store-ratings/internal/config"
	"github.com/Clark-Hu/store-ratings/internal/logging"
	"github.com/Clark-Hu/store-ratings/internal/seed"
)

func main() {
	var (
		data    = flag.String("data", "", "path to a JSON fixture (defaults to the demo dataset)")
		timeout = flag.Duration("timeout", time.Minute, "overall seeding deadline")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	// The loader applies its own fixture; never double-seed the demo.
	cfg.SeedDemo = false

	logger := logging.New(os.Stdout, "store-ratings-seed", cfg.LogLevel, cfg.LogFormat)

	fixture := seed.Demo()
	if *data != "" {
		fixture, err = seed.LoadFile(*data)
		if err != nil {
			logger.Fatal().Err(err).Msg("load fixture")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build application")
	}
	defer application.Close()

	if cfg.StorageBackend == config.BackendMemory {
		logger.Warn().Msg("memory backend selected; seeded data is discarded on exit")
	}

	res, err := seed.Apply(ctx, seed.Services{
		Accounts: application.Accounts,
		Stores:   application.Stores,
		Ratings:  application.Ratings,
	}, fixture, logger)
	if err != nil {
		logger.Error().Err(err).Msg("seed failed")
		application.Close()
		os.Exit(1)
	}
	logger.Info().
		Int("users", res.Users).
		Int("stores", res.Stores).
		Int("ratings", res.Ratings).
		Msg("seed complete")
}
