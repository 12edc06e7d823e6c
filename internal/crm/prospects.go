package crm

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"sales-crm/internal/database"
	"sales-crm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProspectInput struct {
	CompanyName    string
	ContactName    string
	Phone          string
	Email          string
	CurrentPhase   models.Phase // vacío = etapa inicial
	EstimatedValue float64
	Notes          string
}

func (in *ProspectInput) normalize() {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Notes = strings.TrimSpace(in.Notes)
}

func (s *Service) validateProspect(in ProspectInput) error {
	if textLen(in.CompanyName) < 2 {
		return invalid("company_name", "el nombre de la empresa debe tener al menos 2 caracteres")
	}
	if in.CurrentPhase != "" && !in.CurrentPhase.Valid() {
		return invalid("current_phase", "etapa desconocida")
	}
	if in.EstimatedValue < 0 {
		return invalid("estimated_value", "no puede ser negativo")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return invalid("email", "correo inválido")
		}
	}
	return nil
}

// checkUnique: no se permiten dos prospectos con el mismo nombre de empresa.
func checkUnique(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Prospect{}).Where("LOWER(company_name) = LOWER(?)", name)
	if exceptID > 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check company name: %w", err)
	}
	if count > 0 {
		return invalid("company_name", "ya existe un prospecto con ese nombre")
	}
	return nil
}

func (s *Service) CreateProspect(ctx context.Context, v Viewer, in ProspectInput) (*models.Prospect, error) {
	in.normalize()
	if err := s.validateProspect(in); err != nil {
		return nil, err
	}
	phase := in.CurrentPhase
	if phase == "" {
		phase = s.rules.DailyCalls.InitialPhase
	}

	p := models.Prospect{
		CompanyName:    in.CompanyName,
		ContactName:    in.ContactName,
		Phone:          in.Phone,
		Email:          in.Email,
		CurrentPhase:   phase,
		EstimatedValue: in.EstimatedValue,
		Notes:          in.Notes,
		CreatedByID:    actorOf(v),
	}

	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, p.CompanyName, 0); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create prospect: %w", err)
		}
		return database.CreateAuditLog(tx, actorOf(v), models.EntityProspect, p.ID, models.ActionCreate, map[string]any{
			"company_name":  p.CompanyName,
			"current_phase": string(p.CurrentPhase),
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) UpdateProspect(ctx context.Context, v Viewer, id uint, in ProspectInput) (*models.Prospect, error) {
	in.normalize()
	if err := s.validateProspect(in); err != nil {
		return nil, err
	}

	var p models.Prospect
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, "prospect")
		}
		if !strings.EqualFold(p.CompanyName, in.CompanyName) {
			if err := checkUnique(tx, in.CompanyName, p.ID); err != nil {
				return err
			}
		}

		changes := map[string]any{}
		track := func(field string, before, after any) {
			if before != after {
				changes[field] = database.Change(before, after)
			}
		}
		track("company_name", p.CompanyName, in.CompanyName)
		track("contact_name", p.ContactName, in.ContactName)
		track("phone", p.Phone, in.Phone)
		track("email", p.Email, in.Email)
		track("estimated_value", p.EstimatedValue, in.EstimatedValue)
		track("notes", p.Notes, in.Notes)

		p.CompanyName = in.CompanyName
		p.ContactName = in.ContactName
		p.Phone = in.Phone
		p.Email = in.Email
		p.EstimatedValue = in.EstimatedValue
		p.Notes = in.Notes

		if len(changes) > 0 {
			if err := tx.Save(&p).Error; err != nil {
				return fmt.Errorf("update prospect: %w", err)
			}
			if err := database.CreateAuditLog(tx, actorOf(v), models.EntityProspect, p.ID, models.ActionUpdate, changes); err != nil {
				return err
			}
		}

		if in.CurrentPhase != "" && in.CurrentPhase != p.CurrentPhase {
			if err := s.setPhase(tx, actorOf(v), p.ID, in.CurrentPhase); err != nil {
				return err
			}
			p.CurrentPhase = in.CurrentPhase
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ChangePhase mueve el prospecto a otra etapa del pipeline.
func (s *Service) ChangePhase(ctx context.Context, v Viewer, id uint, phase models.Phase) (*models.Prospect, error) {
	if !phase.Valid() {
		return nil, invalid("current_phase", "etapa desconocida")
	}
	var p models.Prospect
	err := s.conn(ctx, v).Transaction(func(tx *gorm.DB) error {
		if err := s.setPhase(tx, actorOf(v), id, phase); err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) setPhase(tx *gorm.DB, actor *uint, prospectID uint, phase models.Phase) error {
	var p models.Prospect
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, prospectID).Error; err != nil {
		return notFound(err, "prospect")
	}
	from := p.CurrentPhase
	if from == phase {
		return nil
	}
	// Model(&p).Update escribe el valor nuevo en p: la etapa anterior queda en from
	if err := tx.Model(&p).Update("current_phase", phase).Error; err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return database.CreateAuditLog(tx, actor, models.EntityProspect, p.ID, models.ActionPhaseChange, map[string]any{
		"company_name":  p.CompanyName,
		"current_phase": database.Change(string(from), string(phase)),
	})
}

// ProspectDetail: prospecto con sus actividades visibles para el usuario.
type ProspectDetail struct {
	models.Prospect
	Activities []models.Activity `json:"activities"`
}

func (s *Service) GetProspect(ctx context.Context, v Viewer, id uint) (*ProspectDetail, error) {
	var p models.Prospect
	if err := s.conn(ctx, v).First(&p, id).Error; err != nil {
		return nil, notFound(err, "prospect")
	}
	activities := []models.Activity{}
	if err := s.conn(ctx, v).
		Scopes(VisibleTo(v)).
		Preload("Assignee").
		Where("activities.prospect_id = ?", p.ID).
		Order("activities.scheduled_date desc, activities.id desc").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("load prospect activities: %w", err)
	}
	return &ProspectDetail{Prospect: p, Activities: activities}, nil
}

type ProspectFilter struct {
	Phase  models.Phase
	Search string
	Limit  int
}

func (s *Service) ListProspects(ctx context.Context, v Viewer, f ProspectFilter) ([]models.Prospect, error) {
	q := s.conn(ctx, v).Model(&models.Prospect{})
	if f.Phase != "" {
		if !f.Phase.Valid() {
			return nil, invalid("phase", "etapa desconocida")
		}
		q = q.Where("current_phase = ?", f.Phase)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(company_name) LIKE ? OR LOWER(contact_name) LIKE ?", like, like)
	}
	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	out := []models.Prospect{}
	if err := q.Order("company_name asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list prospects: %w", err)
	}
	return out, nil
}

// PipelineColumn es una columna del tablero con sus prospectos, cantidad y valor estimado.
type PipelineColumn struct {
	Phase      models.Phase      `json:"phase"`
	Count      int               `json:"count"`
	TotalValue float64           `json:"total_value"`
	Prospects  []models.Prospect `json:"prospects"`
}

// Pipeline agrupa los prospectos por etapa, en el orden del pipeline.
func (s *Service) Pipeline(ctx context.Context, v Viewer) ([]PipelineColumn, error) {
	var all []models.Prospect
	if err := s.conn(ctx, v).Order("updated_at desc").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}

	index := make(map[models.Phase]int, len(models.Phases))
	columns := make([]PipelineColumn, len(models.Phases))
	for i, phase := range models.Phases {
		index[phase] = i
		columns[i] = PipelineColumn{Phase: phase, Prospects: []models.Prospect{}}
	}
	for _, p := range all {
		i, ok := index[p.CurrentPhase]
		if !ok {
			continue
		}
		columns[i].Prospects = append(columns[i].Prospects, p)
		columns[i].Count++
		columns[i].TotalValue += p.EstimatedValue
	}
	return columns, nil
}
