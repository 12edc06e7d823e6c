package server

import (
	"net/http"

	"sales-crm/internal/config"
	"sales-crm/internal/crm"
	"sales-crm/internal/handlers"
	"sales-crm/internal/middleware"
	"sales-crm/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionName = "crm_session"

func NewRouter(cfg *config.Config, svc *crm.Service, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 12,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	h := handlers.New(svc, log)

	// HEALTHCHECK / MÉTRICAS
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// AUTH
	r.POST("/login", h.Login)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth(svc))
	manager := middleware.RequireRole(models.RoleManager)

	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)

	// TABLERO
	auth.GET("/dashboard", h.Dashboard)
	auth.GET("/stats", h.Stats)
	auth.POST("/daily-calls/run", h.RunDailyCalls)

	// ACTIVIDADES
	auth.GET("/activities", h.ListActivities)
	auth.POST("/activities", h.CreateActivity)
	auth.GET("/activities/:id", h.GetActivity)
	auth.POST("/activities/:id/close", h.CloseActivity)
	auth.POST("/activities/:id/follow-up", h.CreateFollowUp)
	auth.GET("/follow-ups", h.PendingFollowUps)

	// edición rápida, sólo gerente
	auth.POST("/activities/:id/unblock", manager, h.Unblock)
	auth.PATCH("/activities/:id/schedule", manager, h.Reschedule)
	auth.PATCH("/activities/:id/assignee", manager, h.Reassign)
	auth.PATCH("/activities/:id/status", manager, h.ChangeStatus)

	// PROSPECTOS
	auth.GET("/prospects", h.ListProspects)
	auth.POST("/prospects", h.CreateProspect)
	auth.GET("/prospects/:id", h.GetProspect)
	auth.PUT("/prospects/:id", h.UpdateProspect)
	auth.PATCH("/prospects/:id/phase", h.ChangePhase)
	auth.GET("/pipeline", h.Pipeline)

	auth.GET("/users", h.ListUsers)

	// AUDITORÍA
	auth.GET("/audit", manager, h.ListAuditLogs)

	return r
}
