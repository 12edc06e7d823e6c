package database

import (
	"sales-crm/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateAuditLog: helper para escribir en el registro de actividad.
// Se llama con la transacción de la operación, así el registro y el cambio se confirman juntos.
func CreateAuditLog(tx *gorm.DB, userID *uint, entity string, entityID uint, action string, details map[string]any) error {
	record := models.ActivityLog{
		UserID:     userID,
		ActionType: action,
		EntityType: entity,
		EntityID:   entityID,
		Details:    datatypes.JSONMap(details),
	}
	return tx.Create(&record).Error
}

// Change: par antes/después para el detalle del registro.
func Change(before, after any) map[string]any {
	return map[string]any{"before": before, "after": after}
}
