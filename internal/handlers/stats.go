package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgolovin/ecommerce-events/internal/metrics"
)

// StatsHandler exposes the process counter snapshot. Counters reset on
// restart; this is observability, not bookkeeping.
func StatsHandler(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.Snapshot())
	}
}
