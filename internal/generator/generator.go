// Package generator produces mock transactions for exercising the fraud
// pipeline without real traffic.
package generator

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

var userIDs = []int{1001, 1002, 1003, 1004, 1005, 1006, 1007, 1008, 1009, 1010}

var statuses = []string{
	models.TransactionStatusPending,
	models.TransactionStatusCompleted,
	models.TransactionStatusFailed,
	models.TransactionStatusRefunded,
}

// TransactionCreator is what the generator feeds; the transaction service's
// create path (persist + publish) satisfies it.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
}

type Generator struct {
	creator  TransactionCreator
	interval time.Duration
	logger   *zap.Logger
	rand     *rand.Rand
}

func New(creator TransactionCreator, interval time.Duration, logger *zap.Logger) *Generator {
	return &Generator{
		creator:  creator,
		interval: interval,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run emits one mock transaction per interval until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.generate(ctx)
		}
	}
}

func (g *Generator) generate(ctx context.Context) {
	orderID := "ORDER-" + strings.ToUpper(uuid.NewString()[:8])

	// 5% of transactions land above the fraud threshold to keep the
	// detection path exercised.
	var amount float64
	if g.rand.Float64() < 0.05 {
		amount = 10_000_000 + g.rand.Float64()*5_000_000
	} else {
		amount = 10 + g.rand.Float64()*9_990
	}

	tx := &models.Transaction{
		OrderID: orderID,
		UserID:  userIDs[g.rand.Intn(len(userIDs))],
		Amount:  amount,
		Status:  statuses[g.rand.Intn(len(statuses))],
	}

	if err := g.creator.CreateTransaction(ctx, tx); err != nil {
		g.logger.Error("failed to generate mock transaction", zap.Error(err))
		return
	}

	g.logger.Info("generated mock transaction",
		zap.String("order_id", tx.OrderID),
		zap.Int("user_id", tx.UserID),
		zap.Float64("amount", tx.Amount),
		zap.String("status", tx.Status),
	)
}
