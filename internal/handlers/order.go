// Package handlers contains the gin HTTP handlers for every service.
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

type OrderHandler struct {
	repo      *db.OrderRepository
	publisher *publisher.OrderPublisher
	logger    *zap.Logger
}

func NewOrderHandler(repo *db.OrderRepository, pub *publisher.OrderPublisher, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		repo:      repo,
		publisher: pub,
		logger:    logger,
	}
}

// HealthCheck returns server status.
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "order-service"})
}

// ListOrders returns all orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreateOrder persists a new order with status CREATED and publishes the
// CREATED lifecycle event.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := models.Order{
		Product:  req.Product,
		Quantity: req.Quantity,
		Status:   models.OrderStatusCreated,
	}

	if err := h.repo.Create(c.Request.Context(), &order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The order is already persisted; a publish failure is counted and
	// logged, not surfaced to the caller.
	if err := h.publisher.PublishOrderEvent(c.Request.Context(), &order, models.EventTypeCreated); err != nil {
		h.logger.Error("failed to publish order event", zap.Int("order_id", order.ID), zap.Error(err))
	}

	h.logger.Info("order created", zap.Int("order_id", order.ID), zap.String("product", order.Product))
	c.JSON(http.StatusCreated, order)
}

// UpdateOrderStatus overwrites the status and publishes the UPDATED event.
// Statuses are free-form; only CANCELLED matters downstream.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.repo.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishOrderEvent(c.Request.Context(), order, models.EventTypeUpdated); err != nil {
		h.logger.Error("failed to publish order event", zap.Int("order_id", order.ID), zap.Error(err))
	}

	h.logger.Info("order status updated", zap.Int("order_id", order.ID), zap.String("status", order.Status))
	c.JSON(http.StatusOK, order)
}
