package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/repository"
	"github.com/prohmpiriya/rail-booking/pkg/config"
	"github.com/prohmpiriya/rail-booking/pkg/database"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	pkgredis "github.com/prohmpiriya/rail-booking/pkg/redis"
	"go.uber.org/zap"
)

// catalog-sync seeds the catalog table with the built-in offerings and
// rebuilds the Redis catalog cache from PostgreSQL.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateCatalogDatabase(); err != nil {
		log.Fatalf("Invalid catalog database config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "catalog-sync",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.CatalogDatabase.Host,
		Port:          cfg.CatalogDatabase.Port,
		User:          cfg.CatalogDatabase.User,
		Password:      cfg.CatalogDatabase.Password,
		Database:      cfg.CatalogDatabase.DBName,
		SSLMode:       cfg.CatalogDatabase.SSLMode,
		MaxConns:      4,
		MinConns:      1,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to catalog database: %v", err))
	}
	defer db.Close()

	catalog := repository.NewPostgresCatalogRepository(db.Pool())
	if err := catalog.EnsureSchema(ctx); err != nil {
		appLog.Fatal(err.Error())
	}

	seed := repository.SeedTrains()
	if err := catalog.Upsert(ctx, seed); err != nil {
		appLog.Fatal(err.Error())
	}
	appLog.Info("catalog seeded", zap.Int("trains", len(seed)))

	if !cfg.Redis.Enabled {
		appLog.Info("redis disabled, skipping cache warm-up")
		return
	}

	rdb, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      4,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer rdb.Close()

	trains, err := catalog.ListTrains(ctx)
	if err != nil {
		appLog.Fatal(err.Error())
	}
	cached := repository.NewCachedCatalogRepository(catalog, rdb, cfg.Workflow.CatalogCacheTTL)
	if err := cached.Warm(ctx, trains); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to warm catalog cache: %v", err))
	}
	appLog.Info("catalog cache warmed", zap.Int("trains", len(trains)))
}
