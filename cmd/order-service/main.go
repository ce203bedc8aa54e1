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
	"github.com/sgolovin/ecommerce-events/internal/db"
	"github.com/sgolovin/ecommerce-events/internal/discovery"
	"github.com/sgolovin/ecommerce-events/internal/handlers"
	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/publisher"
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

	registry := metrics.NewRegistry()

	orderPublisher, err := publisher.NewOrderPublisher(rabbitMQ, cfg.OrderEventsQueue, registry)
	if err != nil {
		logger.Fatal("publisher initialization error", zap.Error(err))
	}

	orderRepo := db.NewOrderRepository(database)
	orderHandler := handlers.NewOrderHandler(orderRepo, orderPublisher, logger)

	router := gin.Default()
	router.GET("/health", orderHandler.HealthCheck)
	router.GET("/stats", handlers.StatsHandler(registry))
	router.GET("/orders", orderHandler.ListOrders)
	router.GET("/orders/:id", orderHandler.GetOrder)
	router.POST("/orders", orderHandler.CreateOrder)
	router.PATCH("/orders/:id/status", orderHandler.UpdateOrderStatus)

	registerWithConsul(cfg, logger)

	server := &http.Server{Addr: cfg.OrderServiceAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting order service", zap.String("addr", cfg.OrderServiceAddr))
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
	logger.Info("order service stopped gracefully")
}

// registerWithConsul is best effort: the service works without discovery,
// the gateway falls back to static addresses.
func registerWithConsul(cfg *config.Config, logger *zap.Logger) {
	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("Consul unavailable, skipping registration", zap.Error(err))
		return
	}

	if err := consul.Register(discovery.ServiceConfig{
		Name: "order-service",
		ID:   "order-service-1",
		Port: discovery.PortFromAddr(cfg.OrderServiceAddr),
	}); err != nil {
		logger.Warn("Consul registration failed", zap.Error(err))
	}
}
