package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/db"
	"github.com/sgolovin/ecommerce-events/internal/models"
	"github.com/sgolovin/ecommerce-events/internal/publisher"
)

type TransactionHandler struct {
	repo      *db.TransactionRepository
	publisher *publisher.TransactionPublisher
	logger    *zap.Logger
}

func NewTransactionHandler(repo *db.TransactionRepository, pub *publisher.TransactionPublisher, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		repo:      repo,
		publisher: pub,
		logger:    logger,
	}
}

// HealthCheck returns server status.
func (h *TransactionHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "transaction-service"})
}

// CreateTransaction persists a PENDING transaction and publishes its event.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx := models.Transaction{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Status:  models.TransactionStatusPending,
	}

	if err := h.repo.Create(c.Request.Context(), &tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishTransactionEvent(c.Request.Context(), &tx); err != nil {
		h.logger.Error("failed to publish transaction event", zap.Int64("transaction_id", tx.ID), zap.Error(err))
	}

	h.logger.Info("transaction created",
		zap.Int64("transaction_id", tx.ID),
		zap.String("order_id", tx.OrderID),
		zap.Float64("amount", tx.Amount),
	)
	c.JSON(http.StatusCreated, tx)
}

// GetTransaction returns a single transaction.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	tx, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListTransactions returns all transactions.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	txs, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// ListTransactionsByUser returns all transactions for one user.
func (h *TransactionHandler) ListTransactionsByUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	txs, err := h.repo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// UpdateTransactionStatus overwrites the status and republishes the event.
func (h *TransactionHandler) UpdateTransactionStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var req models.UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidTransactionStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	tx, err := h.repo.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, models.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishTransactionEvent(c.Request.Context(), tx); err != nil {
		h.logger.Error("failed to publish transaction event", zap.Int64("transaction_id", tx.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, tx)
}
