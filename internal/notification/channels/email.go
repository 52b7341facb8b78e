// internal/notification/channels/email.go
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig configures the EMAIL channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender mails notifications over SMTP.
type EmailSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender creates an EmailSender. Auth is skipped when no username is set.
func NewEmailSender(cfg SMTPConfig) *EmailSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailSender{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Send mails payload to the target address.
func (s *EmailSender) Send(ctx context.Context, target, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(target, "\r\n") {
		return fmt.Errorf("email: invalid recipient %q", target)
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	if err := s.send(addr, s.auth, s.cfg.From, []string{target}, s.compose(target, payload)); err != nil {
		return fmt.Errorf("email: send to %s: %w", target, err)
	}
	return nil
}

func (s *EmailSender) compose(to, payload string) []byte {
	subject := "Wallet activity"
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err == nil && body.Message != "" {
		subject = body.Message
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", " ", "\n", " ").Replace(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: application/json; charset=utf-8\r\n\r\n")
	b.WriteString(payload)
	b.WriteString("\r\n")
	return []byte(b.String())
}
