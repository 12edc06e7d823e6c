package handlers

import (
	"net/http"

	"sales-crm/internal/crm"
	"sales-crm/internal/models"

	"github.com/gin-gonic/gin"
)

//
// LISTADO / ALTA
//

type activityQuery struct {
	Status      models.ActivityStatus `form:"status"`
	AssignedTo  uint                  `form:"assigned_to"`
	ProspectID  uint                  `form:"prospect_id"`
	From        models.Date           `form:"from"`
	To          models.Date           `form:"to"`
	GeneralOnly bool                  `form:"general"`
	Limit       int                   `form:"limit"`
}

func (h *Handler) ListActivities(c *gin.Context) {
	var q activityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "filtros inválidos")
		return
	}
	activities, err := h.svc.ListActivities(c.Request.Context(), viewer(c), crm.ActivityFilter{
		Status:      q.Status,
		AssignedTo:  q.AssignedTo,
		ProspectID:  q.ProspectID,
		From:        q.From,
		To:          q.To,
		GeneralOnly: q.GeneralOnly,
		Limit:       q.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	c.JSON(http.StatusOK, activities)
}

type newActivityBody struct {
	ProspectID    *uint               `json:"prospect_id"`
	ActivityType  models.ActivityType `json:"activity_type"`
	CustomType    string              `json:"custom_type"`
	ScheduledDate models.Date         `json:"scheduled_date"`
	Notes         string              `json:"notes"`
	AssignedTo    uint                `json:"assigned_to"`
}

func (h *Handler) CreateActivity(c *gin.Context) {
	var body newActivityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	activity, err := h.svc.CreateActivity(c.Request.Context(), viewer(c), crm.NewActivity{
		ProspectID:    body.ProspectID,
		ActivityType:  body.ActivityType,
		CustomType:    body.CustomType,
		ScheduledDate: body.ScheduledDate,
		Notes:         body.Notes,
		AssignedTo:    body.AssignedTo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

func (h *Handler) GetActivity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	activity, err := h.svc.GetActivity(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

//
// FLUJO DE CIERRE
//

type closeBody struct {
	Outcome      crm.Outcome  `json:"outcome"`
	Comment      string       `json:"comment"`
	NewPhase     models.Phase `json:"new_phase"`
	RescheduleTo models.Date  `json:"reschedule_to"`
}

// CloseActivity responde con el WorkflowResult: si state es
// awaiting-next-activity el cliente debe crear la actividad siguiente.
func (h *Handler) CloseActivity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body closeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	res, err := h.svc.CloseActivity(c.Request.Context(), viewer(c), crm.CloseInput{
		ActivityID:   id,
		Outcome:      body.Outcome,
		Comment:      body.Comment,
		NewPhase:     body.NewPhase,
		RescheduleTo: body.RescheduleTo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type followUpBody struct {
	ActivityType  models.ActivityType `json:"activity_type"`
	CustomType    string              `json:"custom_type"`
	ScheduledDate models.Date         `json:"scheduled_date"`
	Description   string              `json:"description"`
}

func (h *Handler) CreateFollowUp(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body followUpBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	res, err := h.svc.CreateFollowUp(c.Request.Context(), viewer(c), id, crm.FollowUpInput{
		ActivityType:  body.ActivityType,
		CustomType:    body.CustomType,
		ScheduledDate: body.ScheduledDate,
		Description:   body.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) PendingFollowUps(c *gin.Context) {
	activities, err := h.svc.PendingFollowUps(c.Request.Context(), viewer(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	c.JSON(http.StatusOK, activities)
}

//
// EDICIÓN RÁPIDA (gerente)
//

func (h *Handler) Unblock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	activity, err := h.svc.Unblock(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

type scheduleBody struct {
	ScheduledDate models.Date `json:"scheduled_date" binding:"required"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body scheduleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	activity, err := h.svc.Reschedule(c.Request.Context(), viewer(c), id, body.ScheduledDate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

type assigneeBody struct {
	AssignedTo uint `json:"assigned_to"`
	Confirmed  bool `json:"confirmed"`
}

func (h *Handler) Reassign(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body assigneeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	activity, err := h.svc.Reassign(c.Request.Context(), viewer(c), crm.Reassignment{
		ActivityID: id,
		AssigneeID: body.AssignedTo,
		Confirmed:  body.Confirmed,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

type statusBody struct {
	Status models.ActivityStatus `json:"status"`
	Reason string                `json:"reason"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "datos inválidos")
		return
	}
	res, err := h.svc.ChangeStatus(c.Request.Context(), viewer(c), crm.StatusChange{
		ActivityID: id,
		Status:     body.Status,
		Reason:     body.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
