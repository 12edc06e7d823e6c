// Package crm reúne las reglas del embudo de ventas: ciclo de vida de las
// actividades, seguimiento obligatorio, llamadas diarias y edición del gerente.
package crm

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"sales-crm/internal/config"
	"sales-crm/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier avisa al nuevo responsable cuando se le reasigna una actividad.
type Notifier interface {
	NotifyReassignment(ctx context.Context, activity models.Activity, from, to models.User) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyReassignment(context.Context, models.Activity, models.User, models.User) error {
	return nil
}

type Service struct {
	db       *gorm.DB
	rules    config.Rules
	loc      *time.Location
	now      func() time.Time
	log      *zap.Logger
	notifier Notifier
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(db *gorm.DB, rules config.Rules, opts ...Option) *Service {
	s := &Service{
		db:       db,
		rules:    rules,
		loc:      time.UTC,
		now:      time.Now,
		log:      zap.NewNop(),
		notifier: noopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Rules() config.Rules {
	return s.rules
}

// Today: fecha actual en la zona horaria del negocio.
func (s *Service) Today() models.Date {
	return models.DateOf(s.now(), s.loc)
}

func (s *Service) nowUTC() time.Time {
	return s.now().UTC()
}

// conn: sesión con el contexto de la petición y el actor para el registro.
func (s *Service) conn(ctx context.Context, v Viewer) *gorm.DB {
	if v.UserID > 0 {
		ctx = models.WithActor(ctx, v.UserID)
	}
	return s.db.WithContext(ctx)
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
