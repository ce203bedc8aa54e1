package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/fraud"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type FraudHandler struct {
	service *fraud.Service
	logger  *zap.Logger
}

func NewFraudHandler(service *fraud.Service, logger *zap.Logger) *FraudHandler {
	return &FraudHandler{service: service, logger: logger}
}

// HealthCheck returns server status.
func (h *FraudHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "fraud-service"})
}

// ListAlerts returns alerts, optionally filtered by investigation status or
// user id.
func (h *FraudHandler) ListAlerts(c *gin.Context) {
	filter := fraud.ListFilter{Status: c.Query("status")}

	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
			return
		}
		filter.UserID = &userID
	}

	alerts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, models.ErrUnknownStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetAlert returns a single alert.
func (h *FraudHandler) GetAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert ID"})
		return
	}

	alert, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "fraud alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// PatchAlert moves an alert through its investigation lifecycle. Unknown
// statuses and transitions outside the table are rejected without mutation.
func (h *FraudHandler) PatchAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert ID"})
		return
	}

	var req models.PatchAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.service.PatchStatus(c.Request.Context(), id, req.InvestigationStatus)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "fraud alert not found"})
		case errors.Is(err, models.ErrUnknownStatus), errors.Is(err, models.ErrIllegalTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.logger.Info("fraud alert updated",
		zap.Int64("alert_id", alert.ID),
		zap.String("investigation_status", alert.InvestigationStatus),
	)
	c.JSON(http.StatusOK, alert)
}

// GetStats returns aggregate alert counts.
func (h *FraudHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
