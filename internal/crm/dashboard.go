package crm

import (
	"context"
	"fmt"
	"time"

	"sales-crm/internal/models"

	"gorm.io/gorm"
)

// Dashboard: actividades del usuario agrupadas para la pantalla principal.
// Urgent, Today y Week no se solapan; NewCalls es un subconjunto de Today.
type Dashboard struct {
	Date      models.Date       `json:"date"`
	Urgent    []models.Activity `json:"urgent"`
	Today     []models.Activity `json:"today"`
	Week      []models.Activity `json:"week"`
	NewCalls  []models.Activity `json:"new_calls"`
	Blocked   []models.Activity `json:"blocked"`
	General   []models.Activity `json:"general"`
	FollowUps []models.Activity `json:"follow_ups"`
}

const pendingWithProspect = "activities.status = ? AND activities.prospect_id IS NOT NULL"

func (s *Service) Dashboard(ctx context.Context, v Viewer) (*Dashboard, error) {
	today := s.Today()
	weekEnd := today.AddDays(s.rules.Dashboard.WeekHorizonDays)

	base := func() *gorm.DB {
		return s.conn(ctx, v).
			Scopes(VisibleTo(v)).
			Preload("Prospect").
			Preload("Assignee")
	}

	d := &Dashboard{Date: today}
	buckets := []struct {
		name  string
		dest  *[]models.Activity
		query func() *gorm.DB
	}{
		{"urgent", &d.Urgent, func() *gorm.DB {
			return base().Where(pendingWithProspect, models.StatusPending).
				Where("activities.scheduled_date < ?", today).
				Order("activities.scheduled_date asc, activities.id asc")
		}},
		{"today", &d.Today, func() *gorm.DB {
			return base().Where(pendingWithProspect, models.StatusPending).
				Where("activities.scheduled_date = ?", today).
				Order("activities.id asc")
		}},
		{"week", &d.Week, func() *gorm.DB {
			return base().Where(pendingWithProspect, models.StatusPending).
				Where("activities.scheduled_date > ? AND activities.scheduled_date <= ?", today, weekEnd).
				Order("activities.scheduled_date asc, activities.id asc")
		}},
		{"new_calls", &d.NewCalls, func() *gorm.DB {
			return base().Where("activities.status = ?", models.StatusPending).
				Where("activities.created_by = ? AND activities.activity_type = ?", models.OriginSystem, models.TypeCall).
				Where("activities.scheduled_date = ?", today).
				Order("activities.id asc")
		}},
		{"blocked", &d.Blocked, func() *gorm.DB {
			return base().Where("activities.status = ?", models.StatusBlocked).
				Order("activities.updated_at desc")
		}},
		{"general", &d.General, func() *gorm.DB {
			return base().Where("activities.status = ? AND activities.prospect_id IS NULL", models.StatusPending).
				Order("activities.scheduled_date asc, activities.id asc")
		}},
	}

	for _, b := range buckets {
		out := []models.Activity{}
		if err := b.query().Find(&out).Error; err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", b.name, err)
		}
		*b.dest = out
	}

	followUps, err := s.PendingFollowUps(ctx, v)
	if err != nil {
		return nil, err
	}
	if followUps == nil {
		followUps = []models.Activity{}
	}
	d.FollowUps = followUps

	return d, nil
}

// UserStats: conteos por usuario.
type UserStats struct {
	UserID            uint            `json:"user_id"`
	FullName          string          `json:"full_name"`
	Role              models.UserRole `json:"role"`
	Total             int64           `json:"total"`
	CompletedThisWeek int64           `json:"completed_this_week"`
	Pending           int64           `json:"pending"`
	Overdue           int64           `json:"overdue"`
	Blocked           int64           `json:"blocked"`
}

// WeekStart: lunes 00:00 (hora local) de la semana de day.
func (s *Service) WeekStart(day models.Date) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDays(-offset).Time(s.loc)
}

// ActivityStats devuelve una fila por usuario visible: el propio vendedor o todo el equipo para el gerente.
func (s *Service) ActivityStats(ctx context.Context, v Viewer) ([]UserStats, error) {
	today := s.Today()
	weekStart := s.WeekStart(today).UTC()

	var users []models.User
	uq := s.conn(ctx, v).Order("full_name asc")
	if v.IsManager() {
		uq = uq.Where("active = ?", true)
	} else {
		uq = uq.Where("id = ?", v.UserID)
	}
	if err := uq.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	type row struct {
		AssignedTo        uint
		Total             int64
		CompletedThisWeek int64
		Pending           int64
		Overdue           int64
		Blocked           int64
	}
	var rows []row
	err := s.conn(ctx, v).
		Model(&models.Activity{}).
		Scopes(VisibleTo(v)).
		Select(`activities.assigned_to AS assigned_to,
			COUNT(*) AS total,
			SUM(CASE WHEN activities.status = ? AND activities.completed_at >= ? THEN 1 ELSE 0 END) AS completed_this_week,
			SUM(CASE WHEN activities.status = ? THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN activities.status = ? AND activities.scheduled_date < ? THEN 1 ELSE 0 END) AS overdue,
			SUM(CASE WHEN activities.status = ? THEN 1 ELSE 0 END) AS blocked`,
			models.StatusCompleted, weekStart,
			models.StatusPending,
			models.StatusPending, today,
			models.StatusBlocked).
		Group("activities.assigned_to").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("activity stats: %w", err)
	}

	byUser := make(map[uint]row, len(rows))
	for _, r := range rows {
		byUser[r.AssignedTo] = r
	}

	out := make([]UserStats, 0, len(users))
	for _, u := range users {
		r := byUser[u.ID]
		out = append(out, UserStats{
			UserID:            u.ID,
			FullName:          u.FullName,
			Role:              u.Role,
			Total:             r.Total,
			CompletedThisWeek: r.CompletedThisWeek,
			Pending:           r.Pending,
			Overdue:           r.Overdue,
			Blocked:           r.Blocked,
		})
	}
	return out, nil
}
