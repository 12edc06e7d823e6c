package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sales-crm/internal/crm"
	"sales-crm/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler agrupa los endpoints JSON del CRM.
type Handler struct {
	svc *crm.Service
	log *zap.Logger
}

func New(svc *crm.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// fail traduce los errores del servicio a códigos HTTP en un solo lugar.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve crm.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, crm.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no encontrado"})
	case errors.Is(err, crm.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "acceso denegado"})
	case errors.Is(err, crm.ErrConfirmationRequired):
		c.JSON(http.StatusConflict, gin.H{"error": "confirme la reasignación", "code": "confirmation_required"})
	case errors.Is(err, crm.ErrFollowUpExists):
		c.JSON(http.StatusConflict, gin.H{"error": "la actividad ya tiene seguimiento", "code": "follow_up_exists"})
	case errors.Is(err, crm.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "el estado actual no permite la operación", "code": "invalid_transition"})
	case errors.Is(err, crm.ErrNoSalesperson):
		c.JSON(http.StatusConflict, gin.H{"error": "no hay vendedores activos", "code": "no_salesperson"})
	case errors.Is(err, crm.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "usuario o contraseña incorrectos"})
	default:
		_ = c.Error(err)
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// idParam lee un id positivo de la ruta; responde 400 si no lo es.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "id inválido")
		return 0, false
	}
	return uint(id), true
}

func viewer(c *gin.Context) crm.Viewer {
	return middleware.CurrentViewer(c)
}
