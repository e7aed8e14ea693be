// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail sends account emails: verification codes and password
// reset links.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message kinds
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

var subjects = map[string]string{
	KindVerification:  "Verify your email",
	KindPasswordReset: "Reset your password",
}

// Message is an email to one recipient. Data feeds the template of Kind.
type Message struct {
	Kind string
	To   string
	Data map[string]any
}

// Mailer delivers account emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Render returns the subject and HTML body of msg.
func Render(msg Message) (string, string, error) {
	subject, ok := subjects[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown mail kind %q", msg.Kind)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, msg.Kind+".html", msg.Data); err != nil {
		return "", "", fmt.Errorf("rendering %s mail: %w", msg.Kind, err)
	}
	return subject, buf.String(), nil
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP server.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates a client with PLAIN auth. Port 465 uses implicit
// TLS, everything else STARTTLS.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send renders and delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	out.Subject(subject)
	out.SetBodyString(gomail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("sending %s mail: %w", msg.Kind, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP server is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	subject, _, err := Render(msg)
	if err != nil {
		return err
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail not sent, SMTP disabled", "kind", msg.Kind, "to", msg.To, "subject", subject)
	return nil
}
