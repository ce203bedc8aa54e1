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
	"github.com/sgolovin/ecommerce-events/internal/generator"
	"github.com/sgolovin/ecommerce-events/internal/handlers"
	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
	"github.com/sgolovin/ecommerce-events/internal/publisher"
)

// txCreator is the persist-then-publish path shared by the API handler and
// the mock generator.
type txCreator struct {
	repo   *db.TransactionRepository
	pub    *publisher.TransactionPublisher
	logger *zap.Logger
}

func (t *txCreator) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := t.repo.Create(ctx, tx); err != nil {
		return err
	}
	if err := t.pub.PublishTransactionEvent(ctx, tx); err != nil {
		t.logger.Error("failed to publish transaction event", zap.Int64("transaction_id", tx.ID), zap.Error(err))
	}
	return nil
}

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

	txPublisher, err := publisher.NewTransactionPublisher(rabbitMQ, cfg.TransactionsQueue, registry)
	if err != nil {
		logger.Fatal("publisher initialization error", zap.Error(err))
	}

	txRepo := db.NewTransactionRepository(database)
	txHandler := handlers.NewTransactionHandler(txRepo, txPublisher, logger)

	router := gin.Default()
	router.GET("/health", txHandler.HealthCheck)
	router.GET("/stats", handlers.StatsHandler(registry))
	router.POST("/transactions", txHandler.CreateTransaction)
	router.GET("/transactions", txHandler.ListTransactions)
	router.GET("/transactions/:id", txHandler.GetTransaction)
	router.GET("/transactions/user/:userId", txHandler.ListTransactionsByUser)
	router.PUT("/transactions/:id/status", txHandler.UpdateTransactionStatus)

	registerWithConsul(cfg, logger)

	server := &http.Server{Addr: cfg.TransactionServiceAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.GeneratorEnabled {
		creator := &txCreator{repo: txRepo, pub: txPublisher, logger: logger}
		gen := generator.New(creator, cfg.GeneratorInterval, logger)
		g.Go(func() error {
			gen.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting transaction service", zap.String("addr", cfg.TransactionServiceAddr))
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
	logger.Info("transaction service stopped gracefully")
}

func registerWithConsul(cfg *config.Config, logger *zap.Logger) {
	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("Consul unavailable, skipping registration", zap.Error(err))
		return
	}

	if err := consul.Register(discovery.ServiceConfig{
		Name: "transaction-service",
		ID:   "transaction-service-1",
		Port: discovery.PortFromAddr(cfg.TransactionServiceAddr),
	}); err != nil {
		logger.Warn("Consul registration failed", zap.Error(err))
	}
}
