// Package notify envía los avisos por correo del CRM.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"sales-crm/internal/config"
	"sales-crm/internal/crm"
	"sales-crm/internal/models"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var reassignmentTmpl = template.Must(template.New("reassignment").Parse(`<p>Hola {{.To}},</p>
<p>{{.From}} te reasignó una actividad:</p>
<ul>
  <li><strong>Tipo:</strong> {{.Type}}</li>
  <li><strong>Prospecto:</strong> {{.Prospect}}</li>
  <li><strong>Fecha:</strong> {{.Date}}</li>
</ul>
{{if .Notes}}<p>{{.Notes}}</p>{{end}}
`))

type reassignmentData struct {
	To       string
	From     string
	Type     string
	Prospect string
	Date     string
	Notes    string
}

type MailSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	log      *zap.Logger
}

// New devuelve un crm.Notifier: SMTP si está configurado, nada en caso contrario.
func New(cfg config.SMTPConfig, log *zap.Logger) crm.Notifier {
	if !cfg.Enabled() {
		log.Info("smtp not configured, reassignment mails disabled")
		return disabled{}
	}
	return &MailSender{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		log:      log,
	}
}

type disabled struct{}

func (disabled) NotifyReassignment(context.Context, models.Activity, models.User, models.User) error {
	return nil
}

func (s *MailSender) NotifyReassignment(ctx context.Context, activity models.Activity, from, to models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.reassignmentMessage(activity, from, to)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.host, s.port, s.user, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send reassignment mail: %w", err)
	}
	s.log.Debug("reassignment mail sent",
		zap.Uint("activity_id", activity.ID),
		zap.String("to", to.Username))
	return nil
}

func (s *MailSender) reassignmentMessage(activity models.Activity, from, to models.User) (*gomail.Message, error) {
	subject, body, err := renderReassignment(activity, from, to)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to.Username)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m, nil
}

func renderReassignment(activity models.Activity, from, to models.User) (string, string, error) {
	data := reassignmentData{
		To:       to.FullName,
		From:     from.FullName,
		Type:     activity.DisplayType(),
		Prospect: "Actividad general",
		Date:     string(activity.ScheduledDate),
		Notes:    activity.Notes,
	}
	if activity.Prospect != nil {
		data.Prospect = activity.Prospect.CompanyName
	}

	var body bytes.Buffer
	if err := reassignmentTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render reassignment mail: %w", err)
	}
	subject := fmt.Sprintf("Nueva actividad asignada: %s (%s)", data.Type, data.Date)
	return subject, body.String(), nil
}
