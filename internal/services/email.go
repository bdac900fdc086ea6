package services

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// MailSender dispatches transactional mail. Template rendering is out of
// scope; messages are plain text.
type MailSender interface {
	SendWelcome(ctx context.Context, to, name, profileURL string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	host string
	port string
	auth smtp.Auth
	from string
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{host: host, port: port, auth: auth, from: from}
}

func (s *SMTPSender) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func firstName(name string) string {
	if idx := strings.IndexByte(name, ' '); idx > 0 {
		return name[:idx]
	}
	return name
}

func (s *SMTPSender) SendWelcome(_ context.Context, to, name, profileURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to the Natours family! Visit your profile to get started:\n%s\n",
		firstName(name), profileURL,
	)
	return s.send(to, "Welcome to the Natours Family!", body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, to, name, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to:\n%s\n\nIf you didn't forget your password, please ignore this email.\n",
		firstName(name), resetURL,
	)
	return s.send(to, "Your password reset token (valid for only 10 minutes)", body)
}

// LogSender is the fallback when no SMTP relay is configured: mail is logged
// instead of delivered, so local development never blocks on a mail server.
type LogSender struct{}

func (LogSender) SendWelcome(_ context.Context, to, name, profileURL string) error {
	log.Printf("mail (welcome) to %s <%s>: %s", name, to, profileURL)
	return nil
}

func (LogSender) SendPasswordReset(_ context.Context, to, name, resetURL string) error {
	log.Printf("mail (password reset) to %s <%s>: %s", name, to, resetURL)
	return nil
}
