package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sales-crm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxListLimit = 500

type NewActivity struct {
	ProspectID    *uint
	ActivityType  models.ActivityType
	CustomType    string
	ScheduledDate models.Date
	Notes         string
	// AssignedTo: 0 asigna a quien crea la actividad.
	AssignedTo uint
}

// CreateActivity crea una actividad con o sin prospecto.
// El vendedor sólo puede asignarse actividades a sí mismo.
func (s *Service) CreateActivity(ctx context.Context, v Viewer, in NewActivity) (*models.Activity, error) {
	if err := s.validateTypeAndDate(in.ActivityType, in.CustomType, in.ScheduledDate, false); err != nil {
		return nil, err
	}
	assignee := in.AssignedTo
	if assignee == 0 {
		assignee = v.UserID
	}
	if !v.IsManager() && assignee != v.UserID {
		return nil, ErrForbidden
	}

	activity := models.Activity{
		ProspectID:    in.ProspectID,
		ActivityType:  in.ActivityType,
		CustomType:    customTypeFor(in.ActivityType, in.CustomType),
		ScheduledDate: in.ScheduledDate,
		Status:        models.StatusPending,
		Notes:         strings.TrimSpace(in.Notes),
		AssignedTo:    assignee,
		CreatedBy:     models.OriginFor(v.Role),
		CreatorID:     actorOf(v),
	}

	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if in.ProspectID != nil {
			var p models.Prospect
			if err := tx.Select("id").First(&p, *in.ProspectID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalid("prospect_id", "prospecto no encontrado")
				}
				return fmt.Errorf("load prospect: %w", err)
			}
		}
		var u models.User
		if err := tx.Where("active = ?", true).Select("id").First(&u, assignee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("assigned_to", "usuario no disponible")
			}
			return fmt.Errorf("load assignee: %w", err)
		}
		if err := tx.Omit(clause.Associations).Create(&activity).Error; err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Service) GetActivity(ctx context.Context, v Viewer, id uint) (*models.Activity, error) {
	var activity models.Activity
	err := s.conn(ctx, v).
		Scopes(VisibleTo(v)).
		Preload("Prospect").
		Preload("Assignee").
		First(&activity, id).Error
	if err != nil {
		return nil, notFound(err, "activity")
	}
	return &activity, nil
}

// ActivityFilter: filtros de la tabla de gestión; los campos vacíos no filtran.
type ActivityFilter struct {
	Status      models.ActivityStatus
	AssignedTo  uint
	ProspectID  uint
	From        models.Date
	To          models.Date
	GeneralOnly bool
	Limit       int
}

func (s *Service) ListActivities(ctx context.Context, v Viewer, f ActivityFilter) ([]models.Activity, error) {
	q := s.conn(ctx, v).
		Scopes(VisibleTo(v)).
		Preload("Prospect").
		Preload("Assignee")

	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalid("status", "estado desconocido")
		}
		q = q.Where("activities.status = ?", f.Status)
	}
	if f.AssignedTo > 0 {
		q = q.Where("activities.assigned_to = ?", f.AssignedTo)
	}
	if f.GeneralOnly {
		q = q.Where("activities.prospect_id IS NULL")
	} else if f.ProspectID > 0 {
		q = q.Where("activities.prospect_id = ?", f.ProspectID)
	}
	if !f.From.IsZero() {
		q = q.Where("activities.scheduled_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("activities.scheduled_date <= ?", f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var out []models.Activity
	if err := q.Order("activities.scheduled_date asc, activities.id asc").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}
