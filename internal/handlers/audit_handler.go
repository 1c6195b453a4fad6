package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/scorecheck/backend/internal/services"
)

type AuditHandler struct {
	audit *services.AuditService
	stats *services.StatsService
}

func NewAuditHandler(audit *services.AuditService, stats *services.StatsService) *AuditHandler {
	return &AuditHandler{audit: audit, stats: stats}
}

// @Summary Recent admin activity
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Max entries (default 20, max 100)"
// @Success 200 {array} services.ActivityEntry
// @Router /api/v1/admin/audit/recent [get]
func (h *AuditHandler) GetRecentActivity(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	activities, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to fetch activity")
		return
	}
	c.JSON(http.StatusOK, activities)
}

// @Summary Dashboard counts and recent submissions
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.Stats
// @Router /api/v1/admin/stats [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
