package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Message is an outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Result reports the outcome of a send. Senders never panic; failures are
// carried in Error.
type Result struct {
	Success bool
	Error   string
}

// Sender delivers emails.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// LoadConfig reads SMTP_* from the environment.
func LoadConfig() Config {
	cfg := Config{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		From:     env.GetEnv("SMTP_SENDER", ""),
	}
	if cfg.From == "" {
		cfg.From = "no-reply@campuscircle.local"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", cfg.From)
	}
	return cfg
}

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	cfg      Config
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) Result {
	if err := ctx.Err(); err != nil {
		return Result{Error: err.Error()}
	}
	if m.cfg.Host == "" {
		return Result{Error: "SMTP_HOST not configured"}
	}
	to := strings.TrimSpace(msg.To)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return Result{Error: fmt.Sprintf("invalid recipient %q", msg.To)}
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, buildMessage(m.cfg.From, to, msg.Subject, msg.HTML)); err != nil {
		log.Errorf("[Mail] SMTP send error to %s: %v", to, err)
		return Result{Error: err.Error()}
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return Result{Success: true}
}

func buildMessage(from, to, subject, html string) []byte {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			html,
	)
}
