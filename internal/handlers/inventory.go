package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/db"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type InventoryHandler struct {
	repo   *db.InventoryRepository
	logger *zap.Logger
}

func NewInventoryHandler(repo *db.InventoryRepository, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{repo: repo, logger: logger}
}

// HealthCheck returns server status.
func (h *InventoryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "inventory-service"})
}

// ListInventory returns all inventory records.
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	records, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetInventory returns the record for one product key.
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	rec, err := h.repo.GetByProductID(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, models.ErrInventoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// IncreaseStock applies a positive delta through the same atomic upsert the
// reconciler uses.
func (h *InventoryHandler) IncreaseStock(c *gin.Context) {
	h.adjust(c, +1)
}

// DecreaseStock applies a negative delta, clamped at zero.
func (h *InventoryHandler) DecreaseStock(c *gin.Context) {
	h.adjust(c, -1)
}

func (h *InventoryHandler) adjust(c *gin.Context, sign int) {
	var req models.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Manual adjustments start absent records at zero, not at the consumer
	// bootstrap default: an operator setting stock wants the number they
	// asked for.
	stock, err := h.repo.ApplyDelta(c.Request.Context(), req.ProductID, sign*req.Quantity, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("stock adjusted via API",
		zap.Int("product_id", req.ProductID),
		zap.Int("delta", sign*req.Quantity),
		zap.Int("stock", stock),
	)
	c.JSON(http.StatusOK, models.InventoryRecord{ProductID: req.ProductID, Stock: stock})
}
