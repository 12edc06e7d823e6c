package handlers

import (
	"net/http"

	"sales-crm/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginForm struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "datos inválidos")
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Clear()
	sess.Set(middleware.SessionUserID, user.ID)
	sess.Set(middleware.SessionRole, string(user.Role))
	if err := sess.Save(); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.svc.RecordLogin(c.Request.Context(), *user); err != nil {
		h.log.Warn("audit login failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Logout(c *gin.Context) {
	if user, ok := middleware.CurrentUser(c); ok {
		if err := h.svc.RecordLogout(c.Request.Context(), user); err != nil {
			h.log.Warn("audit logout failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, user)
}
