package crm

import (
	"context"
	"fmt"
	"time"

	"sales-crm/internal/database"
	"sales-crm/internal/models"
	"sales-crm/internal/observability"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SkipWeekday          = "weekday"
	SkipAlreadyGenerated = "already_generated"
	SkipNoCandidates     = "no_candidates"
)

const dailyCallNote = "Llamada automática: prospecto sin contacto reciente"

type DailyCallReport struct {
	Date          models.Date       `json:"date"`
	SkippedReason string            `json:"skipped_reason,omitempty"`
	Created       []models.Activity `json:"created"`
}

// GenerateDailyCalls genera las llamadas automáticas del día de hoy.
func (s *Service) GenerateDailyCalls(ctx context.Context) (*DailyCallReport, error) {
	return s.GenerateDailyCallsFor(ctx, s.Today())
}

// GenerateDailyCallsFor genera hasta max_per_day llamadas para prospectos en la etapa
// inicial sin contacto reciente. Repetir la ejecución el mismo día no crea nada.
func (s *Service) GenerateDailyCallsFor(ctx context.Context, day models.Date) (*DailyCallReport, error) {
	rules := s.rules.DailyCalls
	report := &DailyCallReport{Date: day, Created: []models.Activity{}}

	if !rules.CallDay(day.Weekday()) {
		report.SkippedReason = SkipWeekday
		observability.RecordDailyCallRun(SkipWeekday, 0)
		return report, nil
	}

	// referencia para las ventanas: ahora si es hoy, medianoche si es otro día
	ref := s.now()
	if day != s.Today() {
		ref = day.Time(s.loc)
	}
	horizon := day.AddDays(rules.PendingHorizonDays)
	completedCutoff := ref.Add(-days(rules.CompletedCooldownDays)).UTC()
	callCutoff := ref.Add(-days(rules.SystemCallCooldownDays)).UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// --- ya se generaron hoy ---
		var existing int64
		if err := tx.Model(&models.Activity{}).
			Where("created_by = ? AND activity_type = ? AND scheduled_date = ?",
				models.OriginSystem, models.TypeCall, day).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check daily calls: %w", err)
		}
		if existing > 0 {
			report.SkippedReason = SkipAlreadyGenerated
			return nil
		}

		// --- prospectos elegibles ---
		pending := tx.Model(&models.Activity{}).Select("1").
			Where("activities.prospect_id = prospects.id").
			Where("activities.status = ? AND activities.scheduled_date <= ?", models.StatusPending, horizon)
		completed := tx.Model(&models.Activity{}).Select("1").
			Where("activities.prospect_id = prospects.id").
			Where("activities.status = ? AND activities.completed_at >= ?", models.StatusCompleted, completedCutoff)
		calls := tx.Model(&models.Activity{}).Select("1").
			Where("activities.prospect_id = prospects.id").
			Where("activities.created_by = ? AND activities.activity_type = ? AND activities.created_at >= ?",
				models.OriginSystem, models.TypeCall, callCutoff)

		var candidates []models.Prospect
		if err := tx.Model(&models.Prospect{}).
			Where("prospects.current_phase = ?", rules.InitialPhase).
			Where("NOT EXISTS (?)", pending).
			Where("NOT EXISTS (?)", completed).
			Where("NOT EXISTS (?)", calls).
			Order("RANDOM()").
			Limit(rules.MaxPerDay).
			Find(&candidates).Error; err != nil {
			return fmt.Errorf("select eligible prospects: %w", err)
		}
		if len(candidates) == 0 {
			report.SkippedReason = SkipNoCandidates
			return nil
		}

		var sellers []models.User
		if err := tx.Where("role = ? AND active = ?", models.RoleSalesperson, true).
			Order("id asc").
			Find(&sellers).Error; err != nil {
			return fmt.Errorf("load salespersons: %w", err)
		}
		if len(sellers) == 0 {
			return ErrNoSalesperson
		}

		// rotación: cada día empieza por otro vendedor
		offset := day.Time(time.UTC).YearDay() % len(sellers)
		prospectIDs := make([]uint, 0, len(candidates))
		for i, p := range candidates {
			prospectID := p.ID
			call := models.Activity{
				ProspectID:    &prospectID,
				ActivityType:  models.TypeCall,
				ScheduledDate: day,
				Status:        models.StatusPending,
				Notes:         dailyCallNote,
				AssignedTo:    sellers[(offset+i)%len(sellers)].ID,
				CreatedBy:     models.OriginSystem,
			}
			if err := tx.Omit(clause.Associations).Create(&call).Error; err != nil {
				return fmt.Errorf("create daily call for prospect %d: %w", p.ID, err)
			}
			call.Prospect = &candidates[i]
			report.Created = append(report.Created, call)
			prospectIDs = append(prospectIDs, p.ID)
		}

		return database.CreateAuditLog(tx, nil, models.EntitySystem, 0, models.ActionDailyCalls, map[string]any{
			"date":         string(day),
			"count":        len(report.Created),
			"prospect_ids": prospectIDs,
		})
	})
	if err != nil {
		observability.RecordDailyCallRun("error", 0)
		return nil, err
	}

	result := "created"
	if report.SkippedReason != "" {
		result = report.SkippedReason
	}
	observability.RecordDailyCallRun(result, len(report.Created))
	s.log.Info("daily call run",
		zap.String("date", string(day)),
		zap.String("result", result),
		zap.Int("created", len(report.Created)))

	return report, nil
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
