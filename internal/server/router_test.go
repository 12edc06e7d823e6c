package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"sales-crm/internal/config"
	"sales-crm/internal/crm"
	"sales-crm/internal/database"
	"sales-crm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// lunes 19 de octubre de 2026, 16:00 UTC
var testNow = time.Date(2026, time.October, 19, 16, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return testNow }
	db, err := database.Open("sqlite:"+filepath.Join(t.TempDir(), "crm.db")+"?_busy_timeout=5000",
		zap.NewNop(), database.Options{MaxAttempts: 1, NowFunc: now})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.EnsureManager(db, zap.NewNop(), "gerente@crm.local", "Gerente123!"))
	database.SeedDemoUsers(db, zap.NewNop())
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{SessionSecret: "0123456789abcdef0123456789abcdef", Rules: config.DefaultRules()}
	svc := crm.NewService(db, cfg.Rules, crm.WithClock(now))
	return &testServer{t: t, router: NewRouter(cfg, svc, zap.NewNop()), db: db}
}

type client struct {
	s      *testServer
	cookie []*http.Cookie
}

func (s *testServer) anonymous() *client {
	return &client{s: s}
}

func (s *testServer) login(username, password string) *client {
	s.t.Helper()
	c := &client{s: s}
	rec := c.do(http.MethodPost, "/login", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	c.cookie = rec.Result().Cookies()
	require.NotEmpty(s.t, c.cookie)
	return c
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookie {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.anonymous().do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.anonymous().do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crm_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.anonymous().do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.anonymous().do(http.MethodPost, "/login", map[string]string{"username": "ventas1@crm.local", "password": "mal"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ana := s.login("ventas1@crm.local", "Ventas123!")
	rec = ana.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, "ventas1@crm.local", me.Username)
	assert.Equal(t, models.RoleSalesperson, me.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ana.do(http.MethodGet, "/audit", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ana.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var logins int64
	require.NoError(t, s.db.Model(&models.ActivityLog{}).Where("action_type IN ?", []string{models.ActionLogin, models.ActionLogout}).Count(&logins).Error)
	assert.EqualValues(t, 2, logins)
}

func TestCompletionFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	mgr := s.login("gerente@crm.local", "Gerente123!")
	ana := s.login("ventas1@crm.local", "Ventas123!")

	rec := ana.do(http.MethodPost, "/prospects", map[string]any{"company_name": "Hotel Radisson", "estimated_value": 120000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prospect := decode[models.Prospect](t, rec)
	assert.Equal(t, models.PhaseProspecting, prospect.CurrentPhase)

	// el tablero genera la llamada del día
	rec = ana.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = mgr.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[crm.Dashboard](t, rec)
	require.Len(t, board.NewCalls, 1)
	call := board.NewCalls[0]
	assert.Equal(t, models.Date("2026-10-19"), call.ScheduledDate)
	require.NotNil(t, call.Prospect)
	assert.Equal(t, "Hotel Radisson", call.Prospect.CompanyName)

	holder := ana
	if call.Assignee != nil && call.Assignee.Username == "ventas2@crm.local" {
		holder = s.login("ventas2@crm.local", "Ventas123!")
	}

	rec = holder.do(http.MethodPost, "/activities/"+itoa(call.ID)+"/close", map[string]any{
		"outcome": "complete",
		"comment": "corto",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "comment", decode[map[string]any](t, rec)["field"])

	rec = holder.do(http.MethodPost, "/activities/"+itoa(call.ID)+"/close", map[string]any{
		"outcome": "complete",
		"comment": "Cliente aceptó cotización",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[crm.WorkflowResult](t, rec)
	assert.Equal(t, crm.StateAwaitingNextActivity, res.State)
	require.NotNil(t, res.FollowUp)

	rec = holder.do(http.MethodPost, "/activities/"+itoa(call.ID)+"/close", map[string]any{
		"outcome": "block",
		"comment": "Cliente de vacaciones hasta 15-feb",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = holder.do(http.MethodPost, "/activities/"+itoa(call.ID)+"/follow-up", map[string]any{
		"activity_type":  "Seguimiento",
		"scheduled_date": "2026-10-26",
		"description":    "Llamar en una semana",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	next := decode[crm.WorkflowResult](t, rec)
	assert.Equal(t, crm.StateDone, next.State)
	assert.Equal(t, models.StatusPending, next.Activity.Status)

	rec = holder.do(http.MethodGet, "/follow-ups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Activity](t, rec))
}

func TestManagerQuickEditsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	mgr := s.login("gerente@crm.local", "Gerente123!")
	ana := s.login("ventas1@crm.local", "Ventas123!")

	rec := ana.do(http.MethodPost, "/activities", map[string]any{
		"activity_type":  "Tarea",
		"scheduled_date": "2026-10-20",
		"notes":          "Preparar presentación",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	activity := decode[models.Activity](t, rec)
	path := "/activities/" + itoa(activity.ID)

	rec = ana.do(http.MethodPatch, path+"/schedule", map[string]any{"scheduled_date": "2026-10-22"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = mgr.do(http.MethodPatch, path+"/schedule", map[string]any{"scheduled_date": "2026-10-22"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.Date("2026-10-22"), decode[models.Activity](t, rec).ScheduledDate)

	rec = mgr.do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var luisID uint
	for _, u := range decode[[]models.User](t, rec) {
		if u.Username == "ventas2@crm.local" {
			luisID = u.ID
		}
	}
	require.NotZero(t, luisID)

	rec = mgr.do(http.MethodPatch, path+"/assignee", map[string]any{"assigned_to": luisID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "confirmation_required", decode[map[string]any](t, rec)["code"])

	rec = mgr.do(http.MethodPatch, path+"/assignee", map[string]any{"assigned_to": luisID, "confirmed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ana.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = mgr.do(http.MethodPatch, path+"/status", map[string]any{"status": "blocked", "reason": "Esperando aprobación"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = mgr.do(http.MethodPost, path+"/unblock", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unblocked := decode[models.Activity](t, rec)
	assert.Equal(t, models.StatusPending, unblocked.Status)
	assert.Nil(t, unblocked.BlockReason)

	rec = mgr.do(http.MethodGet, "/audit?action_type=reassign", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ActivityLog](t, rec), 1)

	rec = mgr.do(http.MethodGet, "/activities/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineAndStatsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	mgr := s.login("gerente@crm.local", "Gerente123!")

	rec := mgr.do(http.MethodPost, "/prospects", map[string]any{"company_name": "Clínica San Rafael", "current_phase": "Lead", "estimated_value": 80000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[models.Prospect](t, rec)

	rec = mgr.do(http.MethodPatch, "/prospects/"+itoa(p.ID)+"/phase", map[string]any{"current_phase": "Cotización"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = mgr.do(http.MethodGet, "/pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	columns := decode[[]crm.PipelineColumn](t, rec)
	require.Len(t, columns, len(models.Phases))
	assert.Equal(t, 1, columns[2].Count)
	assert.InDelta(t, 80000, columns[2].TotalValue, 0.01)

	rec = mgr.do(http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]crm.UserStats](t, rec), 3)

	rec = mgr.do(http.MethodPost, "/daily-calls/run", map[string]any{"date": "2026-10-24"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, crm.SkipWeekday, decode[crm.DailyCallReport](t, rec).SkippedReason)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
