package crm

import (
	"testing"

	"sales-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateActivityOrigins(t *testing.T) {
	env := newTestEnv(t)
	p := env.prospect(t, "Hotel Radisson", models.PhaseLead)

	own, err := env.svc.CreateActivity(env.ctx, ViewerOf(env.ana), NewActivity{
		ProspectID:    idOf(p),
		ActivityType:  models.TypeVisit,
		ScheduledDate: env.today().AddDays(1),
	})
	require.NoError(t, err)
	assert.Equal(t, env.ana.ID, own.AssignedTo)
	assert.Equal(t, models.OriginSalesperson, own.CreatedBy)
	assert.Equal(t, models.StatusPending, own.Status)

	assigned, err := env.svc.CreateActivity(env.ctx, ViewerOf(env.manager), NewActivity{
		ActivityType:  models.TypeTask,
		ScheduledDate: env.today(),
		AssignedTo:    env.luis.ID,
		Notes:         "Actualizar lista de precios",
	})
	require.NoError(t, err)
	assert.Equal(t, env.luis.ID, assigned.AssignedTo)
	assert.Equal(t, models.OriginManager, assigned.CreatedBy)
	assert.True(t, assigned.IsGeneral())

	created := env.logs(t, models.EntityActivity, assigned.ID, models.ActionCreate)
	require.Len(t, created, 1)
	assert.Equal(t, env.manager.ID, *created[0].UserID)
	assert.Equal(t, "Actualizar lista de precios", created[0].Details["notes"])
}

func TestCreateActivityRules(t *testing.T) {
	env := newTestEnv(t)
	ana := ViewerOf(env.ana)

	_, err := env.svc.CreateActivity(env.ctx, ana, NewActivity{
		ActivityType: models.TypeTask, ScheduledDate: env.today(), AssignedTo: env.luis.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	missing := uint(999)
	_, err = env.svc.CreateActivity(env.ctx, ana, NewActivity{
		ProspectID: &missing, ActivityType: models.TypeCall, ScheduledDate: env.today(),
	})
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "prospect_id", ve.Field)

	_, err = env.svc.CreateActivity(env.ctx, ana, NewActivity{ActivityType: models.TypeOther, ScheduledDate: env.today()})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "custom_type", ve.Field)

	env.deactivate(t, env.luis)
	_, err = env.svc.CreateActivity(env.ctx, ViewerOf(env.manager), NewActivity{
		ActivityType: models.TypeTask, ScheduledDate: env.today(), AssignedTo: env.luis.ID,
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "assigned_to", ve.Field)
}

func TestListActivitiesFilters(t *testing.T) {
	env := newTestEnv(t)
	today := env.today()
	p := env.prospect(t, "Hotel Radisson", models.PhaseLead)
	a1 := env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, ScheduledDate: today})
	a2 := env.activity(t, models.Activity{AssignedTo: env.ana.ID, ScheduledDate: today.AddDays(3), ActivityType: models.TypeTask})
	a3 := env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.luis.ID, ScheduledDate: today.AddDays(1), Status: models.StatusBlocked, BlockReason: str("Sin respuesta del cliente")})

	all, err := env.svc.ListActivities(env.ctx, ViewerOf(env.manager), ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{a1.ID, a3.ID, a2.ID}, ids(all))

	mine, err := env.svc.ListActivities(env.ctx, ViewerOf(env.ana), ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{a1.ID, a2.ID}, ids(mine))

	// el filtro por responsable no amplía la visibilidad
	others, err := env.svc.ListActivities(env.ctx, ViewerOf(env.ana), ActivityFilter{AssignedTo: env.luis.ID})
	require.NoError(t, err)
	assert.Empty(t, others)

	blocked, err := env.svc.ListActivities(env.ctx, ViewerOf(env.manager), ActivityFilter{Status: models.StatusBlocked})
	require.NoError(t, err)
	assert.Equal(t, []uint{a3.ID}, ids(blocked))

	general, err := env.svc.ListActivities(env.ctx, ViewerOf(env.manager), ActivityFilter{GeneralOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{a2.ID}, ids(general))

	ranged, err := env.svc.ListActivities(env.ctx, ViewerOf(env.manager), ActivityFilter{From: today.AddDays(1), To: today.AddDays(2)})
	require.NoError(t, err)
	assert.Equal(t, []uint{a3.ID}, ids(ranged))

	_, err = env.svc.ListActivities(env.ctx, ViewerOf(env.manager), ActivityFilter{Status: "archived"})
	assert.True(t, IsValidation(err))
}
