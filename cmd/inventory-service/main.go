package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgolovin/ecommerce-events/internal/config"
	"github.com/sgolovin/ecommerce-events/internal/consumer"
	"github.com/sgolovin/ecommerce-events/internal/db"
	"github.com/sgolovin/ecommerce-events/internal/dedup"
	"github.com/sgolovin/ecommerce-events/internal/discovery"
	"github.com/sgolovin/ecommerce-events/internal/handlers"
	"github.com/sgolovin/ecommerce-events/internal/inventory"
	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Parse()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	database, err := db.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database initialization error", zap.Error(err))
	}
	defer database.Close()

	rabbitMQ, err := messaging.NewRabbitMQ(cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal("RabbitMQ connection error", zap.Error(err))
	}
	defer rabbitMQ.Close()

	// Dedup is best effort: without redis the consumer still runs, it just
	// loses protection against redelivery.
	var seen dedup.Store
	if store, err := dedup.NewRedisStore(cfg.RedisAddr, "inventory", cfg.DedupTTL); err != nil {
		logger.Warn("Redis unavailable, events will not be deduplicated", zap.Error(err))
	} else {
		seen = store
		defer store.Close()
	}

	registry := metrics.NewRegistry()

	inventoryRepo := db.NewInventoryRepository(database)
	reconciler := inventory.NewReconciler(inventoryRepo, seen, cfg.DefaultStock, registry, logger)

	worker, err := consumer.NewWorker(rabbitMQ, cfg.OrderEventsQueue, reconciler.HandleOrderEvent,
		cfg.MaxRetries, cfg.RetryBackoff, registry, logger)
	if err != nil {
		logger.Fatal("consumer initialization error", zap.Error(err))
	}

	inventoryHandler := handlers.NewInventoryHandler(inventoryRepo, logger)

	router := gin.Default()
	router.GET("/health", inventoryHandler.HealthCheck)
	router.GET("/stats", handlers.StatsHandler(registry))
	router.GET("/inventory", inventoryHandler.ListInventory)
	router.GET("/inventory/:productId", inventoryHandler.GetInventory)
	router.POST("/inventory/increase", inventoryHandler.IncreaseStock)
	router.POST("/inventory/decrease", inventoryHandler.DecreaseStock)

	registerWithConsul(cfg, logger)

	server := &http.Server{Addr: cfg.InventoryServiceAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("starting inventory service", zap.String("addr", cfg.InventoryServiceAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service terminated with error", zap.Error(err))
	}
	logger.Info("inventory service stopped gracefully")
}

func registerWithConsul(cfg *config.Config, logger *zap.Logger) {
	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("Consul unavailable, skipping registration", zap.Error(err))
		return
	}

	if err := consul.Register(discovery.ServiceConfig{
		Name: "inventory-service",
		ID:   "inventory-service-1",
		Port: discovery.PortFromAddr(cfg.InventoryServiceAddr),
	}); err != nil {
		logger.Warn("Consul registration failed", zap.Error(err))
	}
}
