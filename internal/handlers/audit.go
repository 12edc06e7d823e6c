package handlers

import (
	"net/http"
	"time"

	"sales-crm/internal/crm"

	"github.com/gin-gonic/gin"
)

type auditQuery struct {
	UserID     uint   `form:"user_id"`
	EntityType string `form:"entity_type"`
	ActionType string `form:"action_type"`
	Since      string `form:"since"` // RFC 3339
	Limit      int    `form:"limit"`
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "filtros inválidos")
		return
	}
	filter := crm.AuditFilter{
		UserID:     q.UserID,
		EntityType: q.EntityType,
		ActionType: q.ActionType,
		Limit:      q.Limit,
	}
	if q.Since != "" {
		since, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fecha inválida", "field": "since"})
			return
		}
		filter.Since = since
	}

	logs, err := h.svc.ListAuditLogs(c.Request.Context(), viewer(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
