package models

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityType string
type ActivityStatus string
type ActivityOrigin string

const (
	TypeCall     ActivityType = "Llamada"
	TypeEmail    ActivityType = "Email"
	TypeVisit    ActivityType = "Visita"
	TypeProposal ActivityType = "Propuesta"
	TypeQuote    ActivityType = "Cotización"
	TypeBilling  ActivityType = "Facturación"
	TypeFollowUp ActivityType = "Seguimiento"
	TypeTask     ActivityType = "Tarea"
	TypeOther    ActivityType = "Otro"

	StatusPending   ActivityStatus = "pending"
	StatusCompleted ActivityStatus = "completed"
	StatusBlocked   ActivityStatus = "blocked"

	OriginSystem      ActivityOrigin = "system"
	OriginManager     ActivityOrigin = "manager"
	OriginSalesperson ActivityOrigin = "salesperson"
)

var ActivityTypes = []ActivityType{
	TypeCall, TypeEmail, TypeVisit, TypeProposal, TypeQuote,
	TypeBilling, TypeFollowUp, TypeTask, TypeOther,
}

func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// OriginFor: quién crea la actividad según el rol del usuario.
func OriginFor(role UserRole) ActivityOrigin {
	if role == RoleManager {
		return OriginManager
	}
	return OriginSalesperson
}

type Activity struct {
	Model

	ProspectID *uint     `gorm:"index" json:"prospect_id"` // nil = actividad general
	Prospect   *Prospect `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"prospect,omitempty"`

	ActivityType  ActivityType   `gorm:"type:varchar(30);not null" json:"activity_type"`
	CustomType    string         `gorm:"size:100" json:"custom_type,omitempty"` // sólo con tipo "Otro"
	ScheduledDate Date           `gorm:"type:date;not null;index" json:"scheduled_date"`
	Status        ActivityStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Notes         string         `gorm:"type:text" json:"notes"`

	CompletionComment *string    `gorm:"type:text" json:"completion_comment"`
	BlockReason       *string    `gorm:"type:text" json:"block_reason"`
	CompletedAt       *time.Time `json:"completed_at"`

	// assigned_to -> user_profiles.id
	AssignedTo uint  `gorm:"not null;index" json:"assigned_to"`
	Assignee   *User `gorm:"foreignKey:AssignedTo;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"assignee,omitempty"`

	CreatedBy ActivityOrigin `gorm:"type:varchar(20);not null;index" json:"created_by"`
	CreatorID *uint          `json:"creator_id"`

	FollowUpOf *uint `gorm:"index" json:"follow_up_of"` // actividad completada a la que da seguimiento

	loadedStatus ActivityStatus
}

func (a *Activity) IsGeneral() bool {
	return a.ProspectID == nil
}

// DisplayType: para "Otro" muestra el tipo escrito por el usuario.
func (a *Activity) DisplayType() string {
	if a.ActivityType == TypeOther && a.CustomType != "" {
		return a.CustomType
	}
	return string(a.ActivityType)
}

// --- registro automático (equivalente al trigger de la base) ---

type actorKey struct{}

// WithActor guarda en el contexto el usuario que ejecuta la operación.
func WithActor(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFrom(ctx context.Context) *uint {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(actorKey{}).(uint); ok && id > 0 {
		return &id
	}
	return nil
}

func (a *Activity) AfterFind(tx *gorm.DB) error {
	a.loadedStatus = a.Status
	return nil
}

func (a *Activity) AfterCreate(tx *gorm.DB) error {
	a.loadedStatus = a.Status
	return a.writeLog(tx, ActionCreate, nil)
}

func (a *Activity) AfterUpdate(tx *gorm.DB) error {
	prev := a.loadedStatus
	if prev == "" || prev == a.Status {
		return nil
	}
	a.loadedStatus = a.Status

	var action string
	switch {
	case a.Status == StatusCompleted:
		action = ActionComplete
	case a.Status == StatusBlocked:
		action = ActionBlock
	case prev == StatusBlocked:
		action = ActionUnblock
	default:
		action = ActionReopen
	}
	return a.writeLog(tx, action, map[string]any{
		"from_status": string(prev),
		"to_status":   string(a.Status),
	})
}

func (a *Activity) writeLog(tx *gorm.DB, action string, extra map[string]any) error {
	db := tx.Session(&gorm.Session{NewDB: true})

	details := datatypes.JSONMap{
		"activity_type":  string(a.ActivityType),
		"scheduled_date": string(a.ScheduledDate),
		"status":         string(a.Status),
		"assigned_to":    a.AssignedTo,
		"created_by":     string(a.CreatedBy),
	}
	if a.CustomType != "" {
		details["custom_type"] = a.CustomType
	}
	if a.ProspectID != nil {
		details["prospect_id"] = *a.ProspectID
		var name string
		if err := db.Model(&Prospect{}).Unscoped().
			Where("id = ?", *a.ProspectID).
			Limit(1).
			Select("company_name").Scan(&name).Error; err == nil && name != "" {
			details["prospect_name"] = name
		}
	}
	if a.Notes != "" && action == ActionCreate {
		details["notes"] = a.Notes
	}
	if a.CompletionComment != nil && action == ActionComplete {
		details["completion_comment"] = *a.CompletionComment
	}
	if a.BlockReason != nil && action == ActionBlock {
		details["block_reason"] = *a.BlockReason
	}
	for k, v := range extra {
		details[k] = v
	}

	return db.Create(&ActivityLog{
		UserID:     ActorFrom(tx.Statement.Context),
		ActionType: action,
		EntityType: EntityActivity,
		EntityID:   a.ID,
		Details:    details,
	}).Error
}
