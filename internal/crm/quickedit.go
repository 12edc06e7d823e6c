package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sales-crm/internal/database"
	"sales-crm/internal/models"
	"sales-crm/internal/observability"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//
// EDICIÓN RÁPIDA (sólo gerente)
//

// Reschedule cambia la fecha programada de una actividad.
func (s *Service) Reschedule(ctx context.Context, v Viewer, activityID uint, date models.Date) (*models.Activity, error) {
	if err := requireManager(v); err != nil {
		return nil, err
	}
	if _, err := models.ParseDate(string(date)); err != nil {
		return nil, invalid("scheduled_date", "fecha inválida")
	}
	if date.Before(s.Today()) {
		return nil, invalid("scheduled_date", "no puede ser una fecha pasada")
	}

	var activity models.Activity
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(v)).First(&activity, activityID).Error; err != nil {
			return notFound(err, "activity")
		}
		before := activity.ScheduledDate
		if before == date {
			return nil
		}

		activity.ScheduledDate = date
		if err := tx.Omit(clause.Associations).Save(&activity).Error; err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		return database.CreateAuditLog(tx, actorOf(v), models.EntityActivity, activity.ID, models.ActionReschedule, map[string]any{
			"scheduled_date": database.Change(before, date),
		})
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

type Reassignment struct {
	ActivityID uint
	AssigneeID uint
	// Confirmed: el gerente aceptó que el responsable actual deja de ver la actividad.
	Confirmed bool
}

// Reassign cambia el responsable. Sin Confirmed devuelve ErrConfirmationRequired.
func (s *Service) Reassign(ctx context.Context, v Viewer, in Reassignment) (*models.Activity, error) {
	if err := requireManager(v); err != nil {
		return nil, err
	}
	if in.AssigneeID == 0 {
		return nil, invalid("assigned_to", "seleccione un usuario")
	}

	var (
		activity models.Activity
		from, to models.User
		changed  bool
	)
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(v)).Preload("Prospect").First(&activity, in.ActivityID).Error; err != nil {
			return notFound(err, "activity")
		}
		if err := tx.Where("active = ?", true).First(&to, in.AssigneeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("assigned_to", "usuario no disponible")
			}
			return fmt.Errorf("load assignee: %w", err)
		}
		if activity.AssignedTo == to.ID {
			return nil
		}
		if !in.Confirmed {
			return ErrConfirmationRequired
		}
		if err := tx.First(&from, activity.AssignedTo).Error; err != nil {
			return notFound(err, "current assignee")
		}

		activity.AssignedTo = to.ID
		activity.Assignee = nil
		if err := tx.Omit(clause.Associations).Save(&activity).Error; err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		changed = true
		return database.CreateAuditLog(tx, actorOf(v), models.EntityActivity, activity.ID, models.ActionReassign, map[string]any{
			"assigned_to": database.Change(from.ID, to.ID),
			"assignee":    database.Change(from.FullName, to.FullName),
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if err := s.notifier.NotifyReassignment(ctx, activity, from, to); err != nil {
			s.log.Warn("reassignment notification failed",
				zap.Uint("activity_id", activity.ID),
				zap.Uint("assignee_id", to.ID),
				zap.Error(err))
		}
	}
	activity.Assignee = &to
	return &activity, nil
}

type StatusChange struct {
	ActivityID uint
	Status     models.ActivityStatus
	// Reason: comentario de cierre o motivo de bloqueo.
	Reason string
	// ExpectedStatus: si se indica, el estado actual debe coincidir.
	ExpectedStatus models.ActivityStatus
}

// ChangeStatus cambia el estado respetando los invariantes:
// completada exige comentario, bloqueada exige motivo, pendiente limpia ambos.
func (s *Service) ChangeStatus(ctx context.Context, v Viewer, in StatusChange) (*WorkflowResult, error) {
	if err := requireManager(v); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, invalid("status", "estado desconocido")
	}
	reason := strings.TrimSpace(in.Reason)
	minLen := s.rules.Validation.MinCommentLength
	if in.Status != models.StatusPending && textLen(reason) < minLen {
		return nil, invalid("reason", fmt.Sprintf("debe tener al menos %d caracteres", minLen))
	}

	var (
		activity   models.Activity
		followedUp bool
	)
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(v)).First(&activity, in.ActivityID).Error; err != nil {
			return notFound(err, "activity")
		}
		if in.ExpectedStatus != "" && activity.Status != in.ExpectedStatus {
			return fmt.Errorf("%w: activity is %s", ErrInvalidTransition, activity.Status)
		}
		if activity.Status == in.Status {
			return fmt.Errorf("%w: activity is already %s", ErrInvalidTransition, activity.Status)
		}

		switch in.Status {
		case models.StatusCompleted:
			now := s.nowUTC()
			activity.CompletionComment = &reason
			activity.CompletedAt = &now
			activity.BlockReason = nil
		case models.StatusBlocked:
			activity.BlockReason = &reason
			activity.CompletionComment = nil
			activity.CompletedAt = nil
		case models.StatusPending:
			activity.BlockReason = nil
			activity.CompletionComment = nil
			activity.CompletedAt = nil
		}
		activity.Status = in.Status

		if err := tx.Omit(clause.Associations).Save(&activity).Error; err != nil {
			return fmt.Errorf("update activity: %w", err)
		}

		if in.Status == models.StatusCompleted {
			var err error
			if followedUp, err = hasFollowUp(tx, activity.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordTransition("status:" + string(in.Status))
	if in.Status == models.StatusCompleted {
		return submitted(StateComplete, activity, followedUp)
	}
	return &WorkflowResult{Activity: activity, State: StateDone}, nil
}
