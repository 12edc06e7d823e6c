package models

import (
	"time"

	"gorm.io/gorm"
)

// Model: como gorm.Model, pero con nombres JSON en snake_case para la API.
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
