package crm

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"sales-crm/internal/config"
	"sales-crm/internal/database"
	"sales-crm/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var mexicoCity = mustLocation("America/Mexico_City")

// lunes 19 de octubre de 2026, 10:00 en Ciudad de México
var monday = time.Date(2026, time.October, 19, 10, 0, 0, 0, mexicoCity)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type notification struct {
	activityID uint
	from, to   string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) NotifyReassignment(_ context.Context, a models.Activity, from, to models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{activityID: a.ID, from: from.Username, to: to.Username})
	return n.err
}

type testEnv struct {
	ctx      context.Context
	db       *gorm.DB
	svc      *Service
	clock    *fakeClock
	notifier *recordingNotifier

	manager models.User
	ana     models.User
	luis    models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: monday}
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "crm.db") + "?_busy_timeout=5000"
	db, err := database.Open(dsn, zap.NewNop(), database.Options{
		MaxAttempts: 1,
		NowFunc:     func() time.Time { return clock.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		ctx:      context.Background(),
		db:       db,
		clock:    clock,
		notifier: &recordingNotifier{},
	}
	env.manager = env.user(t, "gerente@crm.local", "Gerente General", models.RoleManager)
	env.ana = env.user(t, "ventas1@crm.local", "Ana Vendedora", models.RoleSalesperson)
	env.luis = env.user(t, "ventas2@crm.local", "Luis Vendedor", models.RoleSalesperson)

	env.svc = NewService(db, config.DefaultRules(),
		WithClock(clock.Now),
		WithLocation(mexicoCity),
		WithNotifier(env.notifier),
	)
	return env
}

func (e *testEnv) user(t *testing.T, username, name string, role models.UserRole) models.User {
	t.Helper()
	u, err := database.CreateUser(e.db, database.SeedUser{
		Username: username,
		FullName: name,
		Password: "Secreto123!",
		Role:     role,
	})
	require.NoError(t, err)
	return *u
}

func (e *testEnv) deactivate(t *testing.T, u models.User) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", u.ID).Update("active", false).Error)
}

func (e *testEnv) prospect(t *testing.T, name string, phase models.Phase) models.Prospect {
	t.Helper()
	p := models.Prospect{CompanyName: name, CurrentPhase: phase}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

// activity inserta una actividad directamente; los campos vacíos toman valores por defecto.
func (e *testEnv) activity(t *testing.T, a models.Activity) models.Activity {
	t.Helper()
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if a.ActivityType == "" {
		a.ActivityType = models.TypeCall
	}
	if a.CreatedBy == "" {
		a.CreatedBy = models.OriginManager
	}
	if a.ScheduledDate == "" {
		a.ScheduledDate = e.today()
	}
	require.NoError(t, e.db.Omit(clause.Associations).Create(&a).Error)
	return a
}

func (e *testEnv) reload(t *testing.T, id uint) models.Activity {
	t.Helper()
	var a models.Activity
	require.NoError(t, e.db.First(&a, id).Error)
	return a
}

func (e *testEnv) logs(t *testing.T, entity string, entityID uint, action string) []models.ActivityLog {
	t.Helper()
	var out []models.ActivityLog
	require.NoError(t, e.db.
		Where("entity_type = ? AND entity_id = ? AND action_type = ?", entity, entityID, action).
		Order("id asc").
		Find(&out).Error)
	return out
}

func (e *testEnv) today() models.Date {
	return models.DateOf(e.clock.Now(), mexicoCity)
}

func (e *testEnv) at(day models.Date, hour int) time.Time {
	return day.Time(mexicoCity).Add(time.Duration(hour) * time.Hour)
}

func idOf(p models.Prospect) *uint {
	id := p.ID
	return &id
}

func str(s string) *string { return &s }
