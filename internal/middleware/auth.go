package middleware

import (
	"context"
	"net/http"

	"sales-crm/internal/crm"
	"sales-crm/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserID = "user_id"
	SessionRole   = "role"

	currentUserKey = "CurrentUser"
)

// UserLoader: lo que necesita el middleware para cargar al usuario de la sesión.
type UserLoader interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// RequireAuth carga el usuario de la sesión; sin sesión válida responde 401.
// Un usuario desactivado pierde la sesión en la siguiente petición.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid, ok := sess.Get(SessionUserID).(uint)
		if !ok || uid == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sesión no iniciada"})
			return
		}

		user, err := users.GetUser(c.Request.Context(), uid)
		if err != nil {
			sess.Clear()
			_ = sess.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sesión no válida"})
			return
		}

		c.Set(currentUserKey, *user)
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sesión no iniciada"})
			return
		}
		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "acceso denegado"})
			return
		}
		c.Next()
	}
}

// CurrentUser: el usuario que dejó RequireAuth en el contexto.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func CurrentViewer(c *gin.Context) crm.Viewer {
	u, _ := CurrentUser(c)
	return crm.ViewerOf(u)
}
