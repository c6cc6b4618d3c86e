// Package mailer delivers login codes by email.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/recvault/vault-server-go/internal/config"
)

const loginCodeSubject = "Recording Vault - Login Code"

// ErrNotConfigured is returned when no delivery channel is available.
var ErrNotConfigured = errors.New("mail delivery is not configured")

type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// New picks SMTP when configured. Outside production it falls back to
// writing codes to the log so local sign-in works without a mail server.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPConfigured() {
		return NewSMTPMailer(cfg)
	}
	if !cfg.IsProduction() {
		return LogMailer{}
	}
	return disabledMailer{}
}

var loginCodeHTML = template.Must(template.New("login-code").Parse(`<!doctype html>
<html lang="en">
  <head><meta charset="utf-8"><title>{{.Subject}}</title></head>
  <body style="margin:0;padding:24px;font-family:Segoe UI,Roboto,Helvetica,Arial,sans-serif;color:#00194c;">
    <h1 style="font-size:24px;">Your login code</h1>
    <p>Use the one-time code below to sign in to your recording vault.</p>
    <p style="font-size:32px;letter-spacing:0.2em;font-weight:700;">{{.Code}}</p>
    <p>This code expires in <strong>{{.Minutes}} minutes</strong>.</p>
    <p style="font-size:12px;color:#6a7dab;">If you did not request this email, you can safely ignore it.</p>
  </body>
</html>`))

type SMTPMailer struct {
	from string
	ttl  time.Duration
	send func(msgs ...*gomail.Message) error
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	dialer.SSL = cfg.SMTPPort == 465
	return &SMTPMailer{
		from: cfg.SMTPFrom,
		ttl:  cfg.LoginCodeTTL(),
		send: dialer.DialAndSend,
	}
}

func (m *SMTPMailer) SendCode(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	minutes := int(m.ttl.Minutes())

	var html bytes.Buffer
	if err := loginCodeHTML.Execute(&html, struct {
		Subject string
		Code    string
		Minutes int
	}{loginCodeSubject, code, minutes}); err != nil {
		return fmt.Errorf("render login code email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", loginCodeSubject)
	msg.SetBody("text/plain", fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, minutes))
	msg.AddAlternative("text/html", html.String())

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send login code email: %w", err)
	}
	return nil
}

// LogMailer prints codes to the log. Development only.
type LogMailer struct{}

func (LogMailer) SendCode(_ context.Context, email, code string) error {
	log.Info().Str("email", email).Str("code", code).Msg("development login code")
	return nil
}

type disabledMailer struct{}

func (disabledMailer) SendCode(context.Context, string, string) error {
	return ErrNotConfigured
}
