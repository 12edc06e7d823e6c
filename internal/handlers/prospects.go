package handlers

import (
	"net/http"

	"sales-crm/internal/crm"
	"sales-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type prospectBody struct {
	CompanyName    string       `json:"company_name"`
	ContactName    string       `json:"contact_name"`
	Phone          string       `json:"phone"`
	Email          string       `json:"email"`
	CurrentPhase   models.Phase `json:"current_phase"`
	EstimatedValue float64      `json:"estimated_value"`
	Notes          string       `json:"notes"`
}

func (b prospectBody) input() crm.ProspectInput {
	return crm.ProspectInput{
		CompanyName:    b.CompanyName,
		ContactName:    b.ContactName,
		Phone:          b.Phone,
		Email:          b.Email,
		CurrentPhase:   b.CurrentPhase,
		EstimatedValue: b.EstimatedValue,
		Notes:          b.Notes,
	}
}

func (h *Handler) ListProspects(c *gin.Context) {
	prospects, err := h.svc.ListProspects(c.Request.Context(), viewer(c), crm.ProspectFilter{
		Phase:  models.Phase(c.Query("phase")),
		Search: c.Query("q"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prospects)
}

func (h *Handler) CreateProspect(c *gin.Context) {
	var body prospectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	p, err := h.svc.CreateProspect(c.Request.Context(), viewer(c), body.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProspect(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProspect(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProspect(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body prospectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	p, err := h.svc.UpdateProspect(c.Request.Context(), viewer(c), id, body.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type phaseBody struct {
	CurrentPhase models.Phase `json:"current_phase"`
}

func (h *Handler) ChangePhase(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body phaseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	p, err := h.svc.ChangePhase(c.Request.Context(), viewer(c), id, body.CurrentPhase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Pipeline(c *gin.Context) {
	columns, err := h.svc.Pipeline(c.Request.Context(), viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, columns)
}
