package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tipos de acción del registro de actividad
const (
	ActionCreate       = "create"
	ActionComplete     = "complete"
	ActionBlock        = "block"
	ActionUnblock      = "unblock"
	ActionReopen       = "reopen"
	ActionNotCompleted = "not_completed"
	ActionReschedule   = "reschedule"
	ActionReassign     = "reassign"
	ActionUpdate       = "update"
	ActionPhaseChange  = "phase_change"
	ActionDailyCalls   = "daily_calls"
	ActionLogin        = "login"
	ActionLogout       = "logout"
)

// Tipos de entidad
const (
	EntityActivity = "activity"
	EntityProspect = "prospect"
	EntityUser     = "user"
	EntitySystem   = "system"
)

// ActivityLog: registro de auditoría, sólo se agregan filas.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID *uint `gorm:"index" json:"user_id"` // nil = sistema
	User   *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"user,omitempty"`

	ActionType string            `gorm:"size:50;not null;index" json:"action_type"`
	EntityType string            `gorm:"size:50;not null" json:"entity_type"`
	EntityID   uint              `gorm:"index" json:"entity_id"`
	Details    datatypes.JSONMap `json:"details"`
}
