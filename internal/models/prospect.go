package models

type Phase string

// Etapas del pipeline, en orden
const (
	PhaseProspecting Phase = "Prospección"
	PhaseLead        Phase = "Lead"
	PhaseQuote       Phase = "Cotización"
	PhaseNegotiation Phase = "Negociación"
	PhaseWon         Phase = "Ganada"
	PhaseLost        Phase = "Perdida"
	PhaseProduction  Phase = "En Producción"
	PhaseInvoiced    Phase = "Facturada"
	PhaseAfterSales  Phase = "Post Venta"
)

var Phases = []Phase{
	PhaseProspecting,
	PhaseLead,
	PhaseQuote,
	PhaseNegotiation,
	PhaseWon,
	PhaseLost,
	PhaseProduction,
	PhaseInvoiced,
	PhaseAfterSales,
}

func (p Phase) Valid() bool {
	for _, v := range Phases {
		if v == p {
			return true
		}
	}
	return false
}

type Prospect struct {
	Model
	CompanyName    string  `gorm:"size:255;not null;index" json:"company_name"`
	ContactName    string  `gorm:"size:255" json:"contact_name"`
	Phone          string  `gorm:"size:50" json:"phone"`
	Email          string  `gorm:"size:255" json:"email"`
	CurrentPhase   Phase   `gorm:"type:varchar(30);not null;index" json:"current_phase"`
	EstimatedValue float64 `gorm:"not null;default:0" json:"estimated_value"`
	Notes          string  `gorm:"type:text" json:"notes"`

	CreatedByID *uint `json:"created_by_id"`
}
