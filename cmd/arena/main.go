// Package main runs the arena engine service: the HTTP API, the combat event
// stream and the regeneration scheduler for the active character.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/api"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/events"
	"github.com/cory-johannsen/arena/internal/game/content"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/regen"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/shop"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/storage/memory"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	redisstore "github.com/cory-johannsen/arena/internal/storage/redis"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seed := flag.Uint64("seed", 0, "deterministic dice seed; 0 uses crypto randomness")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting arena",
		zap.String("store", cfg.Store.Backend),
		zap.String("events", cfg.Events.Backend),
		zap.String("addr", cfg.HTTP.Addr()),
	)

	catalog, err := content.Load(cfg.Content.Dir)
	if err != nil {
		logger.Fatal("loading content", zap.String("dir", cfg.Content.Dir), zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("races", len(catalog.Races())),
		zap.Int("locations", len(catalog.Locations())),
		zap.Int("shop_listings", len(catalog.Shop())),
	)

	var redisClient *goredis.Client
	if cfg.Store.Backend == config.BackendRedis || cfg.Events.Backend == config.EventsRedis {
		redisClient, err = redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	store, health, closeStore := openStore(ctx, cfg, redisClient, logger)
	defer closeStore()

	bus := openBus(cfg, redisClient, logger)
	defer func() { _ = bus.Close() }()

	var src dice.Source = dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
		logger.Info("using seeded dice", zap.Uint64("seed", *seed))
	}

	sessions := session.NewManager(
		store,
		catalog,
		src,
		events.NewPublisher(bus, time.Now, logger.Named("events")),
		cfg.Engine.GlobalRewardPercent,
		time.Now,
		logger.Named("session"),
	)

	items := shop.New(catalog, store, logger.Named("shop"))
	if err := items.Seed(ctx); err != nil {
		logger.Fatal("seeding shop unlocks", zap.Error(err))
	}

	scheduler := regen.NewScheduler(cfg.Engine.RegenInterval(), sessions, store, time.Now, logger.Named("regen"))

	gin.SetMode(observability.GinMode(cfg.Logging))
	handler := api.NewHandler(sessions, items, catalog, store, bus, health, logger.Named("api"))
	handler.SetRateLimit(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("session", server.NewRunService(func(runCtx context.Context) error {
		<-runCtx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sessions.End(stopCtx); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
			return fmt.Errorf("persisting active session: %w", err)
		}
		return nil
	}))
	lifecycle.Add("regen", server.NewRunService(scheduler.Run))
	lifecycle.Add("http", server.NewHTTPService(httpSrv, cfg.HTTP.ShutdownTimeout))

	logger.Info("arena ready", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("arena stopped with error", zap.Error(err))
	}
}

// openStore builds the configured CharacterStore, its health probe and its cleanup.
func openStore(ctx context.Context, cfg config.Config, client *goredis.Client, logger *zap.Logger) (storage.CharacterStore, api.HealthFunc, func()) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)
		return pool.Store(time.Now), pool.Health, pool.Close
	case config.BackendRedis:
		health := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return redisstore.NewStore(client, cfg.Redis.KeyPrefix, time.Now), health, func() {}
	default:
		logger.Warn("using in-memory store; characters are lost on exit")
		return memory.New(time.Now), nil, func() {}
	}
}

func openBus(cfg config.Config, client *goredis.Client, logger *zap.Logger) events.Bus {
	if cfg.Events.Backend == config.EventsRedis {
		return events.NewRedisBus(client, cfg.Redis.Channel, cfg.Events.Buffer, logger.Named("bus"))
	}
	return events.NewLocalBus(cfg.Events.Buffer, logger.Named("bus"))
}
