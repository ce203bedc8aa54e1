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
	"github.com/sgolovin/ecommerce-events/internal/fraud"
	"github.com/sgolovin/ecommerce-events/internal/handlers"
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

	var seen dedup.Store
	if store, err := dedup.NewRedisStore(cfg.RedisAddr, "fraud", cfg.DedupTTL); err != nil {
		logger.Warn("Redis unavailable, events will not be deduplicated", zap.Error(err))
	} else {
		seen = store
		defer store.Close()
	}

	registry := metrics.NewRegistry()

	alertRepo := db.NewFraudAlertRepository(database)

	rules := []fraud.Rule{
		fraud.ThresholdRule{Threshold: cfg.FraudThreshold},
	}
	detector := fraud.NewDetector(alertRepo, rules, seen, registry, logger)

	worker, err := consumer.NewWorker(rabbitMQ, cfg.TransactionsQueue, detector.HandleTransactionEvent,
		cfg.MaxRetries, cfg.RetryBackoff, registry, logger)
	if err != nil {
		logger.Fatal("consumer initialization error", zap.Error(err))
	}

	fraudService := fraud.NewService(alertRepo)
	fraudHandler := handlers.NewFraudHandler(fraudService, logger)

	router := gin.Default()
	router.GET("/health", fraudHandler.HealthCheck)
	router.GET("/stats", handlers.StatsHandler(registry))
	router.GET("/fraud/alerts", fraudHandler.ListAlerts)
	router.GET("/fraud/alerts/stats", fraudHandler.GetStats)
	router.GET("/fraud/alerts/:id", fraudHandler.GetAlert)
	router.PATCH("/fraud/alerts/:id", fraudHandler.PatchAlert)

	registerWithConsul(cfg, logger)

	server := &http.Server{Addr: cfg.FraudServiceAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("starting fraud service", zap.String("addr", cfg.FraudServiceAddr))
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
	logger.Info("fraud service stopped gracefully")
}

func registerWithConsul(cfg *config.Config, logger *zap.Logger) {
	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("Consul unavailable, skipping registration", zap.Error(err))
		return
	}

	if err := consul.Register(discovery.ServiceConfig{
		Name: "fraud-service",
		ID:   "fraud-service-1",
		Port: discovery.PortFromAddr(cfg.FraudServiceAddr),
	}); err != nil {
		logger.Warn("Consul registration failed", zap.Error(err))
	}
}
