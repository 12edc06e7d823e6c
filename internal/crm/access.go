package crm

import (
	"sales-crm/internal/models"

	"gorm.io/gorm"
)

// Viewer identifica a quien consulta y determina qué actividades ve.
type Viewer struct {
	UserID uint
	Role   models.UserRole
}

func ViewerOf(u models.User) Viewer {
	return Viewer{UserID: u.ID, Role: u.Role}
}

func (v Viewer) IsManager() bool {
	return v.Role == models.RoleManager
}

// VisibleTo: único predicado de visibilidad para toda lectura de actividades.
// El vendedor ve sólo lo asignado a él; el gerente ve todo.
func VisibleTo(v Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case v.IsManager():
			return db
		case v.Role == models.RoleSalesperson && v.UserID > 0:
			return db.Where("activities.assigned_to = ?", v.UserID)
		default:
			return db.Where("1 = 0")
		}
	}
}

func requireManager(v Viewer) error {
	if !v.IsManager() {
		return ErrForbidden
	}
	return nil
}
