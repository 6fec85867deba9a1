package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"order_ledger/internal/config"
	"order_ledger/internal/database"
	"order_ledger/internal/events"
	"order_ledger/internal/handlers"
	"order_ledger/internal/logger"
	"order_ledger/internal/migrations"
	"order_ledger/internal/redis"
	"order_ledger/internal/repository"
	"order_ledger/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := database.Initialize(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := migrations.RunMigrations(db, zlog); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	store := repository.New(db)

	// Redis only backs the pricing profile cache, so it is optional.
	var cache services.ProfileCache
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL)
		if err != nil {
			zlog.Warn("redis unavailable, pricing cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = redisClient
		}
	}

	var bus services.EventBus
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		bus = publisher
		zlog.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Initialize services
	pricingService := services.NewPricingService(store, cache, services.PricingOptions{
		DefaultDays: cfg.DefaultDays,
		CacheTTL:    cfg.CacheTTL,
	}, zlog.Named("pricing"))
	ledgerService := services.NewLedgerService(store, zlog.Named("ledger"), nil)
	archiveService := services.NewArchiveService(store, ledgerService, zlog.Named("archive"), nil)
	orderService := services.NewOrderService(store, pricingService, ledgerService, archiveService, bus, cfg.DefaultDays, zlog.Named("orders"))

	// Initialize handlers
	gin.SetMode(cfg.GinMode)
	apiHandler := handlers.NewAPIHandler(pricingService, orderService, archiveService, ledgerService, zlog.Named("http"))
	router := handlers.NewRouter(apiHandler, zlog.Named("http"))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
