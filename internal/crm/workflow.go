package crm

import (
	"context"
	"fmt"
	"strings"

	"sales-crm/internal/database"
	"sales-crm/internal/models"
	"sales-crm/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CloseInput struct {
	ActivityID uint
	Outcome    Outcome
	Comment    string
	// NewPhase: opcional, al completar mueve el prospecto a esta etapa.
	NewPhase models.Phase
	// RescheduleTo: opcional, al marcar como no completada mueve la fecha.
	RescheduleTo models.Date
}

// FollowUpRequirement: la actividad siguiente que hay que crear para cerrar el flujo.
type FollowUpRequirement struct {
	PreviousActivityID uint `json:"previous_activity_id"`
	ProspectID         uint `json:"prospect_id"`
	AssignedTo         uint `json:"assigned_to"`
}

// WorkflowResult: resultado de una operación del flujo de cierre.
// FollowUp no es nil sólo si State es awaiting-next-activity.
type WorkflowResult struct {
	Activity models.Activity      `json:"activity"`
	State    FlowState            `json:"state"`
	FollowUp *FollowUpRequirement `json:"follow_up,omitempty"`
}

func (s *Service) validateClose(in CloseInput) error {
	if !in.Outcome.Valid() {
		return invalid("outcome", "seleccione un resultado")
	}
	minLen := s.rules.Validation.MinCommentLength
	if textLen(in.Comment) < minLen {
		return invalid("comment", fmt.Sprintf("debe tener al menos %d caracteres", minLen))
	}
	if in.NewPhase != "" {
		if in.Outcome != OutcomeComplete {
			return invalid("new_phase", "sólo se puede cambiar la etapa al completar")
		}
		if !in.NewPhase.Valid() {
			return invalid("new_phase", "etapa desconocida")
		}
	}
	if !in.RescheduleTo.IsZero() {
		if in.Outcome != OutcomeNotComplete {
			return invalid("reschedule_to", "sólo se reprograma una actividad no completada")
		}
		if _, err := models.ParseDate(string(in.RescheduleTo)); err != nil {
			return invalid("reschedule_to", "fecha inválida")
		}
		if in.RescheduleTo.Before(s.Today()) {
			return invalid("reschedule_to", "no puede ser una fecha pasada")
		}
	}
	return nil
}

// CloseActivity registra el resultado de una actividad pendiente.
// Al completar una actividad con prospecto el resultado exige una actividad siguiente.
func (s *Service) CloseActivity(ctx context.Context, v Viewer, in CloseInput) (*WorkflowResult, error) {
	state, err := StateButtons.Choose(in.Outcome)
	if err != nil {
		return nil, err
	}
	if err := s.validateClose(in); err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(in.Comment)
	actor := actorOf(v)

	var (
		activity   models.Activity
		followedUp bool
	)
	err = s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(VisibleTo(v)).First(&activity, in.ActivityID).Error; err != nil {
			return notFound(err, "activity")
		}
		if activity.Status != models.StatusPending {
			return fmt.Errorf("%w: activity is %s", ErrInvalidTransition, activity.Status)
		}

		before := activity.ScheduledDate
		switch in.Outcome {
		case OutcomeComplete:
			now := s.nowUTC()
			activity.Status = models.StatusCompleted
			activity.CompletionComment = &comment
			activity.CompletedAt = &now
		case OutcomeBlock:
			activity.Status = models.StatusBlocked
			activity.BlockReason = &comment
		case OutcomeNotComplete:
			activity.Notes = appendNote(activity.Notes, s.Today(), "No completada: "+comment)
			if !in.RescheduleTo.IsZero() {
				activity.ScheduledDate = in.RescheduleTo
			}
		}

		if err := tx.Omit(clause.Associations).Save(&activity).Error; err != nil {
			return fmt.Errorf("update activity: %w", err)
		}

		if in.Outcome == OutcomeNotComplete {
			details := map[string]any{"reason": comment}
			if activity.ScheduledDate != before {
				details["scheduled_date"] = database.Change(before, activity.ScheduledDate)
			}
			if err := database.CreateAuditLog(tx, actor, models.EntityActivity, activity.ID, models.ActionNotCompleted, details); err != nil {
				return fmt.Errorf("audit: %w", err)
			}
		}

		if in.NewPhase != "" && activity.ProspectID != nil {
			if err := s.setPhase(tx, actor, *activity.ProspectID, in.NewPhase); err != nil {
				return err
			}
		}

		if in.Outcome == OutcomeComplete {
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

	observability.RecordTransition(string(in.Outcome))
	return submitted(state, activity, followedUp)
}

// submitted calcula el paso siguiente una vez guardado el cambio.
// Una actividad reabierta que ya tiene seguimiento no exige otro.
func submitted(state FlowState, activity models.Activity, followedUp bool) (*WorkflowResult, error) {
	next, err := state.Submitted(activity.ProspectID != nil && !followedUp)
	if err != nil {
		return nil, err
	}
	res := &WorkflowResult{Activity: activity, State: next}
	if next == StateAwaitingNextActivity {
		res.FollowUp = &FollowUpRequirement{
			PreviousActivityID: activity.ID,
			ProspectID:         *activity.ProspectID,
			AssignedTo:         activity.AssignedTo,
		}
	}
	return res, nil
}

type FollowUpInput struct {
	ActivityType  models.ActivityType
	CustomType    string
	ScheduledDate models.Date
	Description   string
}

func (s *Service) validateFollowUp(in FollowUpInput) error {
	if err := s.validateTypeAndDate(in.ActivityType, in.CustomType, in.ScheduledDate, false); err != nil {
		return err
	}
	minLen := s.rules.Validation.MinFollowUpLength
	if textLen(in.Description) < minLen {
		return invalid("description", fmt.Sprintf("debe tener al menos %d caracteres", minLen))
	}
	return nil
}

// validateTypeAndDate: tipo válido ("Otro" exige descripción del tipo) y fecha.
// Con allowPast=false la fecha debe ser hoy o posterior.
func (s *Service) validateTypeAndDate(t models.ActivityType, customType string, date models.Date, allowPast bool) error {
	if !t.Valid() {
		return invalid("activity_type", "seleccione un tipo de actividad")
	}
	if t == models.TypeOther && textLen(customType) == 0 {
		return invalid("custom_type", "indique el tipo de actividad")
	}
	if date.IsZero() {
		return invalid("scheduled_date", "la fecha es obligatoria")
	}
	if _, err := models.ParseDate(string(date)); err != nil {
		return invalid("scheduled_date", "fecha inválida")
	}
	if !allowPast && date.Before(s.Today()) {
		return invalid("scheduled_date", "no puede ser una fecha pasada")
	}
	return nil
}

// CreateFollowUp crea la actividad siguiente de una actividad completada y cierra el flujo.
func (s *Service) CreateFollowUp(ctx context.Context, v Viewer, previousID uint, in FollowUpInput) (*WorkflowResult, error) {
	if err := s.validateFollowUp(in); err != nil {
		return nil, err
	}

	var next models.Activity
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		var prev models.Activity
		if err := tx.Scopes(VisibleTo(v)).First(&prev, previousID).Error; err != nil {
			return notFound(err, "activity")
		}
		if prev.Status != models.StatusCompleted {
			return fmt.Errorf("%w: activity is %s", ErrInvalidTransition, prev.Status)
		}
		if prev.ProspectID == nil {
			return fmt.Errorf("%w: general activities need no follow-up", ErrInvalidTransition)
		}

		exists, err := hasFollowUp(tx, prev.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrFollowUpExists
		}

		previous := prev.ID
		next = models.Activity{
			ProspectID:    prev.ProspectID,
			ActivityType:  in.ActivityType,
			CustomType:    customTypeFor(in.ActivityType, in.CustomType),
			ScheduledDate: in.ScheduledDate,
			Status:        models.StatusPending,
			Notes:         strings.TrimSpace(in.Description),
			AssignedTo:    prev.AssignedTo,
			CreatedBy:     models.OriginFor(v.Role),
			CreatorID:     actorOf(v),
			FollowUpOf:    &previous,
		}
		if err := tx.Omit(clause.Associations).Create(&next).Error; err != nil {
			return fmt.Errorf("create follow-up: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	state, err := StateAwaitingNextActivity.FollowUpCreated()
	if err != nil {
		return nil, err
	}
	return &WorkflowResult{Activity: next, State: state}, nil
}

// PendingFollowUps: actividades completadas con prospecto que aún no tienen actividad siguiente.
func (s *Service) PendingFollowUps(ctx context.Context, v Viewer) ([]models.Activity, error) {
	var out []models.Activity
	err := s.conn(ctx, v).
		Scopes(VisibleTo(v)).
		Preload("Prospect").
		Where("activities.status = ? AND activities.prospect_id IS NOT NULL", models.StatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM activities f WHERE f.follow_up_of = activities.id AND f.deleted_at IS NULL)").
		Order("activities.completed_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pending follow-ups: %w", err)
	}
	return out, nil
}

// Unblock devuelve una actividad bloqueada a pendiente (sólo gerente).
func (s *Service) Unblock(ctx context.Context, v Viewer, activityID uint) (*models.Activity, error) {
	res, err := s.ChangeStatus(ctx, v, StatusChange{
		ActivityID:     activityID,
		Status:         models.StatusPending,
		ExpectedStatus: models.StatusBlocked,
	})
	if err != nil {
		return nil, err
	}
	return &res.Activity, nil
}

func hasFollowUp(tx *gorm.DB, activityID uint) (bool, error) {
	var n int64
	if err := tx.Model(&models.Activity{}).
		Where("follow_up_of = ?", activityID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check follow-up: %w", err)
	}
	return n > 0, nil
}

func appendNote(notes string, day models.Date, line string) string {
	entry := fmt.Sprintf("[%s] %s", day, line)
	if strings.TrimSpace(notes) == "" {
		return entry
	}
	return notes + "\n" + entry
}

func customTypeFor(t models.ActivityType, custom string) string {
	if t != models.TypeOther {
		return ""
	}
	return strings.TrimSpace(custom)
}

func actorOf(v Viewer) *uint {
	if v.UserID == 0 {
		return nil
	}
	id := v.UserID
	return &id
}
