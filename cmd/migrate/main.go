// Package main applies the arena's postgres schema migrations.
package main

import (
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("dir", "migrations", "migrations directory")
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("migrate")

	if cfg.Store.Backend != config.BackendPostgres {
		logger.Warn("store backend is not postgres; migrating the configured database anyway",
			zap.String("store", cfg.Store.Backend))
	}

	res, err := postgres.Migrate(cfg.Database.DSN(), *dir, postgres.Direction(*direction), *steps)
	if err != nil {
		logger.Fatal("migration failed",
			zap.String("direction", *direction),
			zap.String("database", cfg.Database.Name),
			zap.Error(err),
		)
	}
	logger.Info("migration complete",
		zap.String("direction", *direction),
		zap.Bool("changed", res.Changed),
		zap.Uint("version", res.Version),
		zap.Bool("dirty", res.Dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}
