// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
)

// Config carries SMTP and link settings.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FrontendURL string
}

// Sender abstracts smtp.SendMail for tests.
type Sender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders and sends the verification and password reset emails.
type Mailer struct {
	cfg  Config
	send Sender
}

// New constructs a Mailer.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// WithSender overrides the SMTP transport, for tests.
func (m *Mailer) WithSender(send Sender) *Mailer {
	m.send = send
	return m
}

// SendVerification emails the verify-email link carrying the token.
func (m *Mailer) SendVerification(ctx context.Context, email, tokenString, name string) error {
	link := m.cfg.FrontendURL + "/verify-email?token=" + url.QueryEscape(tokenString)
	return m.sendHTML(ctx, email, "UncleFab - Verify Your Email", verificationTemplate, templateData{Name: name, URL: link})
}

// SendPasswordReset emails the reset-password link carrying the token.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, tokenString, name string) error {
	link := m.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(tokenString)
	return m.sendHTML(ctx, email, "UncleFab - Reset Your Password", passwordResetTemplate, templateData{Name: name, URL: link})
}

func (m *Mailer) sendHTML(ctx context.Context, to, subject string, tmpl *template.Template, data templateData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
