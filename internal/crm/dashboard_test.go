package crm

import (
	"testing"
	"time"

	"sales-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(activities []models.Activity) []uint {
	out := make([]uint, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func TestDashboardBuckets(t *testing.T) {
	env := newTestEnv(t)
	today := env.today()
	p := env.prospect(t, "Hotel Radisson", models.PhaseLead)
	mine := func(a models.Activity) models.Activity {
		a.AssignedTo = env.ana.ID
		if a.ProspectID == nil && a.ActivityType != models.TypeTask {
			a.ProspectID = idOf(p)
		}
		return env.activity(t, a)
	}

	urgent := mine(models.Activity{ScheduledDate: today.AddDays(-3)})
	dueToday := mine(models.Activity{ScheduledDate: today})
	systemCall := mine(models.Activity{ScheduledDate: today, CreatedBy: models.OriginSystem})
	tomorrow := mine(models.Activity{ScheduledDate: today.AddDays(1)})
	weekEdge := mine(models.Activity{ScheduledDate: today.AddDays(7)})
	mine(models.Activity{ScheduledDate: today.AddDays(8)})
	blocked := mine(models.Activity{Status: models.StatusBlocked, BlockReason: str("Esperando presupuesto")})
	general := mine(models.Activity{ActivityType: models.TypeTask, ScheduledDate: today.AddDays(-1)})
	completed := mine(models.Activity{
		Status:            models.StatusCompleted,
		CompletionComment: str("Cliente pidió otra visita"),
		ScheduledDate:     today.AddDays(-1),
	})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.luis.ID, ScheduledDate: today})

	d, err := env.svc.Dashboard(env.ctx, ViewerOf(env.ana))
	require.NoError(t, err)

	assert.Equal(t, today, d.Date)
	assert.Equal(t, []uint{urgent.ID}, ids(d.Urgent))
	assert.Equal(t, []uint{dueToday.ID, systemCall.ID}, ids(d.Today))
	assert.Equal(t, []uint{tomorrow.ID, weekEdge.ID}, ids(d.Week))
	assert.Equal(t, []uint{systemCall.ID}, ids(d.NewCalls))
	assert.Equal(t, []uint{blocked.ID}, ids(d.Blocked))
	assert.Equal(t, []uint{general.ID}, ids(d.General))
	assert.Equal(t, []uint{completed.ID}, ids(d.FollowUps))

	require.NotNil(t, d.Urgent[0].Prospect)
	assert.Equal(t, "Hotel Radisson", d.Urgent[0].Prospect.CompanyName)
	require.NotNil(t, d.Urgent[0].Assignee)
	assert.Equal(t, env.ana.ID, d.Urgent[0].Assignee.ID)
}

func TestDashboardVisibility(t *testing.T) {
	env := newTestEnv(t)
	today := env.today()
	p := env.prospect(t, "Hotel Radisson", models.PhaseLead)
	anas := env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, ScheduledDate: today})
	luiss := env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.luis.ID, ScheduledDate: today})

	d, err := env.svc.Dashboard(env.ctx, ViewerOf(env.ana))
	require.NoError(t, err)
	assert.Equal(t, []uint{anas.ID}, ids(d.Today))

	d, err = env.svc.Dashboard(env.ctx, ViewerOf(env.manager))
	require.NoError(t, err)
	assert.Equal(t, []uint{anas.ID, luiss.ID}, ids(d.Today))

	d, err = env.svc.Dashboard(env.ctx, Viewer{})
	require.NoError(t, err)
	assert.Empty(t, d.Today)
}

func TestDashboardEmptyBucketsAreNotNil(t *testing.T) {
	env := newTestEnv(t)

	d, err := env.svc.Dashboard(env.ctx, ViewerOf(env.ana))
	require.NoError(t, err)
	assert.NotNil(t, d.Urgent)
	assert.NotNil(t, d.FollowUps)
	assert.Empty(t, d.Today)
}

func TestWeekStartIsMonday(t *testing.T) {
	env := newTestEnv(t)
	for _, day := range []models.Date{"2026-10-19", "2026-10-22", "2026-10-25"} {
		start := env.svc.WeekStart(day)
		assert.Equal(t, time.Monday, start.Weekday(), string(day))
		assert.Equal(t, "2026-10-19T00:00:00-06:00", start.Format(time.RFC3339), string(day))
	}
}

func TestActivityStats(t *testing.T) {
	env := newTestEnv(t)
	today := env.today()
	p := env.prospect(t, "Hotel Radisson", models.PhaseLead)

	thisWeek := env.clock.Now().Add(-time.Hour).UTC()
	lastWeek := env.clock.Now().Add(-72 * time.Hour).UTC()
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, ScheduledDate: today})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, ScheduledDate: today.AddDays(-2)})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, Status: models.StatusBlocked, BlockReason: str("Sin presupuesto aún")})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, Status: models.StatusCompleted, CompletionComment: str("Visita realizada"), CompletedAt: &thisWeek})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.ana.ID, Status: models.StatusCompleted, CompletionComment: str("Visita anterior"), CompletedAt: &lastWeek})
	env.activity(t, models.Activity{ProspectID: idOf(p), AssignedTo: env.luis.ID, ScheduledDate: today})

	own, err := env.svc.ActivityStats(env.ctx, ViewerOf(env.ana))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, UserStats{
		UserID:            env.ana.ID,
		FullName:          "Ana Vendedora",
		Role:              models.RoleSalesperson,
		Total:             5,
		CompletedThisWeek: 1,
		Pending:           2,
		Overdue:           1,
		Blocked:           1,
	}, own[0])

	team, err := env.svc.ActivityStats(env.ctx, ViewerOf(env.manager))
	require.NoError(t, err)
	require.Len(t, team, 3)
	byUser := map[uint]UserStats{}
	for _, s := range team {
		byUser[s.UserID] = s
	}
	assert.EqualValues(t, 1, byUser[env.luis.ID].Pending)
	assert.EqualValues(t, 0, byUser[env.manager.ID].Total)
}
