package crm

import (
	"context"
	"fmt"
	"time"

	"sales-crm/internal/database"
	"sales-crm/internal/models"
)

const defaultAuditLimit = 200

// AuditFilter: filtros del registro de actividad del equipo.
type AuditFilter struct {
	UserID     uint
	EntityType string
	ActionType string
	Since      time.Time
	Limit      int
}

// ListAuditLogs devuelve el registro más reciente primero (sólo gerente).
func (s *Service) ListAuditLogs(ctx context.Context, v Viewer, f AuditFilter) ([]models.ActivityLog, error) {
	if err := requireManager(v); err != nil {
		return nil, err
	}

	q := s.conn(ctx, v).Preload("User")
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	logs := []models.ActivityLog{}
	if err := q.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func (s *Service) RecordLogin(ctx context.Context, u models.User) error {
	return s.recordSession(ctx, u, models.ActionLogin)
}

func (s *Service) RecordLogout(ctx context.Context, u models.User) error {
	return s.recordSession(ctx, u, models.ActionLogout)
}

func (s *Service) recordSession(ctx context.Context, u models.User, action string) error {
	id := u.ID
	return database.CreateAuditLog(s.db.WithContext(ctx), &id, models.EntityUser, u.ID, action, map[string]any{
		"username": u.Username,
	})
}
