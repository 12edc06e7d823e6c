package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sales-crm/internal/models"
)

const defaultRulesYAML = `# reglas de negocio del CRM
daily_calls:
  # días en que se generan llamadas automáticas
  weekdays: [monday, tuesday, wednesday, thursday]
  max_per_day: 3
  initial_phase: Prospección
  # sin actividad pendiente dentro de los próximos N días
  pending_horizon_days: 7
  # sin actividad completada en los últimos N días
  completed_cooldown_days: 3
  # sin llamada del sistema en los últimos N días
  system_call_cooldown_days: 2

validation:
  min_comment_length: 10
  min_follow_up_length: 5

dashboard:
  week_horizon_days: 7
`

type DailyCallRules struct {
	Weekdays               []string     `yaml:"weekdays"`
	MaxPerDay              int          `yaml:"max_per_day"`
	InitialPhase           models.Phase `yaml:"initial_phase"`
	PendingHorizonDays     int          `yaml:"pending_horizon_days"`
	CompletedCooldownDays  int          `yaml:"completed_cooldown_days"`
	SystemCallCooldownDays int          `yaml:"system_call_cooldown_days"`
}

type ValidationRules struct {
	MinCommentLength  int `yaml:"min_comment_length"`
	MinFollowUpLength int `yaml:"min_follow_up_length"`
}

type DashboardRules struct {
	WeekHorizonDays int `yaml:"week_horizon_days"`
}

// Rules: parámetros de negocio configurables por archivo YAML.
type Rules struct {
	DailyCalls DailyCallRules  `yaml:"daily_calls"`
	Validation ValidationRules `yaml:"validation"`
	Dashboard  DashboardRules  `yaml:"dashboard"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func DefaultRules() Rules {
	rules, err := ParseRulesYAML([]byte(defaultRulesYAML), Rules{})
	if err != nil {
		panic(fmt.Sprintf("config: default rules: %v", err))
	}
	return rules
}

// ParseRulesYAML aplica el YAML sobre base y valida el resultado.
func ParseRulesYAML(data []byte, base Rules) (Rules, error) {
	rules := base
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return Rules{}, fmt.Errorf("rules: decode: %w", err)
		}
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules lee el archivo de reglas; sin archivo se usan los valores por defecto.
func LoadRules(path string) (Rules, error) {
	base := DefaultRules()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Rules{}, fmt.Errorf("rules: %s does not exist", path)
		}
		return Rules{}, fmt.Errorf("rules: read %s: %w", path, err)
	}
	rules, err := ParseRulesYAML(data, base)
	if err != nil {
		return Rules{}, fmt.Errorf("rules: %s: %w", path, err)
	}
	return rules, nil
}

func (r Rules) Validate() error {
	dc := r.DailyCalls
	if len(dc.Weekdays) == 0 {
		return errors.New("rules: daily_calls.weekdays is empty")
	}
	for _, d := range dc.Weekdays {
		if _, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]; !ok {
			return fmt.Errorf("rules: unknown weekday %q", d)
		}
	}
	if dc.MaxPerDay < 1 {
		return errors.New("rules: daily_calls.max_per_day must be positive")
	}
	if !dc.InitialPhase.Valid() {
		return fmt.Errorf("rules: unknown phase %q", dc.InitialPhase)
	}
	if dc.PendingHorizonDays < 0 || dc.CompletedCooldownDays < 0 || dc.SystemCallCooldownDays < 0 {
		return errors.New("rules: daily_calls windows must not be negative")
	}
	if r.Validation.MinCommentLength < 1 || r.Validation.MinFollowUpLength < 1 {
		return errors.New("rules: validation lengths must be positive")
	}
	if r.Dashboard.WeekHorizonDays < 1 {
		return errors.New("rules: dashboard.week_horizon_days must be positive")
	}
	return nil
}

// CallDay indica si en ese día de la semana se generan llamadas.
func (d DailyCallRules) CallDay(w time.Weekday) bool {
	for _, name := range d.Weekdays {
		if weekdayNames[strings.ToLower(strings.TrimSpace(name))] == w {
			return true
		}
	}
	return false
}
