package mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/logger"
)

const (
	defaultPort    = 465
	defaultTimeout = 10 * time.Second
	activationSubj = "Activate your Study Planner account"
)

var activationTemplate = template.Must(template.New("activation").Parse(
	`<p>Hello {{ .Name }},</p>
<p>Please activate your account by following the link: <a href="{{ .Link }}">{{ .Link }}</a></p>`,
))

type activationData struct {
	Name string
	Link string
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sends mail over SMTP
// Port 465 uses implicit TLS, any other port upgrades with STARTTLS when the server supports it
type SMTPMailer struct {
	from   string
	client *mail.Client
}

func NewSMTP(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and sender address must be set")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(defaultTimeout),
	}
	if cfg.Port == defaultPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't configure smtp client. Err: %w", err)
	}

	return &SMTPMailer{from: cfg.From, client: client}, nil
}

func (m *SMTPMailer) SendActivation(ctx context.Context, to string, name string, link string) error {
	msg, err := activationMessage(m.from, to, name, link)
	if err != nil {
		return err
	}

	err = m.client.DialAndSendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: can't send mail: %w", apperrors.ErrDependencyUnavailable, err)
	}

	return nil
}

func activationMessage(from string, to string, name string, link string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address. Err: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address. Err: %w", err)
	}
	msg.Subject(activationSubj)

	err := msg.SetBodyHTMLTemplate(activationTemplate, activationData{Name: name, Link: link})
	if err != nil {
		return nil, fmt.Errorf("can't render activation mail. Err: %w", err)
	}

	return msg, nil
}

// Mailer for environments without SMTP: links are written to log
type LogMailer struct {
	logger logger.Logger
}

func NewLog(l logger.Logger) *LogMailer {
	return &LogMailer{logger: l}
}

func (m *LogMailer) SendActivation(ctx context.Context, to string, _ string, link string) error {
	logger.FromContext(ctx, m.logger).Info("activation mail not sent, smtp is not configured", "to", to, "link", link)
	return nil
}
