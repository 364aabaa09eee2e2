package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/model"
)

type Service interface {
	SendFeedbackNotice(ctx context.Context, to []string, evt model.FeedbackCreatedEvent) error
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

var feedbackTmpl = template.Must(template.New("feedback").Parse(`<p>New operator feedback for <b>{{.ClinicName}}</b> (step {{.Step}}).</p>
<blockquote>{{.Content}}</blockquote>
<p>Clinic ID: {{.ClinicID}}<br>Received: {{.At.Format "2006-01-02 15:04 MST"}}</p>`))

func (s *smtpService) SendFeedbackNotice(ctx context.Context, to []string, evt model.FeedbackCreatedEvent) error {
	var body strings.Builder
	if err := feedbackTmpl.Execute(&body, evt); err != nil {
		return fmt.Errorf("failed to render feedback notice: %w", err)
	}
	name := evt.ClinicName
	if name == "" {
		name = evt.ClinicID.String()
	}
	return s.send(ctx, to, fmt.Sprintf("[clinic-console] Feedback on %s", name), body.String())
}

func (s *smtpService) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	return s.send(ctx, to, subject, content)
}

func (s *smtpService) send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
