package handlers

import (
	"net/http"

	"sales-crm/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dashboard genera primero las llamadas del día (idempotente) y luego
// arma los grupos del usuario. Un fallo del generador no impide ver el tablero.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.svc.GenerateDailyCalls(ctx); err != nil {
		h.log.Warn("daily call generation failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
	}

	d, err := h.svc.Dashboard(ctx, viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.ActivityStats(c.Request.Context(), viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type dailyCallsBody struct {
	Date models.Date `json:"date"`
}

// RunDailyCalls: ejecución explícita. Sólo el gerente puede indicar otra fecha.
func (h *Handler) RunDailyCalls(c *gin.Context) {
	var body dailyCallsBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "datos inválidos")
			return
		}
	}

	day := h.svc.Today()
	if !body.Date.IsZero() {
		if _, err := models.ParseDate(string(body.Date)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fecha inválida", "field": "date"})
			return
		}
		if body.Date != day && !viewer(c).IsManager() {
			c.JSON(http.StatusForbidden, gin.H{"error": "acceso denegado"})
			return
		}
		day = body.Date
	}

	report, err := h.svc.GenerateDailyCallsFor(c.Request.Context(), day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
