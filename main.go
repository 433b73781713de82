package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/internal/di"
	"github.com/prohmpiriya/rail-booking/internal/gateway"
	"github.com/prohmpiriya/rail-booking/internal/metrics"
	"github.com/prohmpiriya/rail-booking/internal/service"
	"github.com/prohmpiriya/rail-booking/pkg/config"
	"github.com/prohmpiriya/rail-booking/pkg/database"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/middleware"
	pkgredis "github.com/prohmpiriya/rail-booking/pkg/redis"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.uber.org/zap"
)

const serviceName = "booking-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Booking Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(context.Background())

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize metrics: %v", err))
	}

	// Catalog database is optional, the built-in offerings are used without it
	var db *database.PostgresDB
	if cfg.CatalogDatabase.Enabled {
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.CatalogDatabase.Host,
			Port:            cfg.CatalogDatabase.Port,
			User:            cfg.CatalogDatabase.User,
			Password:        cfg.CatalogDatabase.Password,
			Database:        cfg.CatalogDatabase.DBName,
			SSLMode:         cfg.CatalogDatabase.SSLMode,
			MaxConns:        int32(cfg.CatalogDatabase.MaxOpenConns),
			MinConns:        int32(cfg.CatalogDatabase.MaxIdleConns),
			MaxConnLifetime: cfg.CatalogDatabase.ConnMaxLifetime,
			MaxConnIdleTime: cfg.CatalogDatabase.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   2 * time.Second,
			EnableTracing:   cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Catalog database connection failed, using built-in catalog: %v", err))
			db = nil
		} else {
			defer db.Close()
			appLog.Info("Catalog database connected")
		}
	}

	// Redis backs the catalog cache and idempotent settlement
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Redis connection failed: %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected")
		}
	}

	// Initialize Kafka confirmation publisher
	var publisher service.ConfirmationPublisher
	if cfg.Kafka.Enabled {
		publisher, err = service.NewKafkaConfirmationPublisher(ctx, &service.ConfirmationPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.ConfirmationTopic,
			ServiceName: serviceName,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			publisher = service.NewNoOpConfirmationPublisher()
		} else {
			appLog.Info("Kafka confirmation publisher connected")
		}
	} else {
		publisher = service.NewNoOpConfirmationPublisher()
	}
	defer publisher.Close()

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Publisher:       publisher,
		CatalogCacheTTL: cfg.Workflow.CatalogCacheTTL,
		GatewayConfig: &gateway.MockGatewayConfig{
			SuccessRate:     cfg.Workflow.GatewaySuccess,
			SettlementDelay: cfg.Workflow.SettlementLatency,
			OTPDelay:        cfg.Workflow.OTPLatency,
			FailureReasons:  gateway.DefaultMockGatewayConfig().FailureReasons,
		},
		ServiceConfig: &service.WorkflowServiceConfig{
			SessionTTL: cfg.Workflow.SessionTTL,
			SeatSeed:   cfg.Workflow.SeatSeed,
		},
	})

	// Setup Gin
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(middleware.AccessLog(appLog))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader, middleware.IdempotencyKeyHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": serviceName,
			})
		})

		// Settlement and OTP submission replay on a repeated idempotency key
		var settle []gin.HandlerFunc
		if redisClient != nil {
			settle = append(settle, middleware.Idempotency(&middleware.IdempotencyConfig{
				Redis:         redisClient,
				TTL:           middleware.DefaultIdempotencyTTL,
				ProcessingTTL: cfg.Workflow.SettlementLatency + cfg.Workflow.OTPLatency + 30*time.Second,
			}))
		}
		container.WorkflowHandler.RegisterRoutes(v1, settle...)
	}

	// Sweep idle sessions
	go func() {
		interval := cfg.Workflow.SweepInterval
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := container.WorkflowService.SweepIdle(ctx); n > 0 {
					appLog.Info("idle sessions swept", zap.Int("count", n))
				}
				if n := container.Gateway.ExpireBefore(time.Now().Add(-cfg.Workflow.SessionTTL)); n > 0 {
					appLog.Info("stale otp challenges expired", zap.Int("count", n))
				}
			}
		}
	}()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Booking Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")
	cancel()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
