package notifier

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer is the outbound transport collaborator. Implementations must be
// safe for concurrent use by the dispatcher workers.
type Mailer interface {
	// Send delivers one message. attachmentPath may be empty.
	Send(recipients []string, subject, htmlBody, attachmentPath string) error

	// IsConfigured reports whether transport credentials are present. When
	// false, the system functions fully and deliveries are skipped.
	IsConfigured() bool
}

// SMTPConfig carries the transport credentials. Empty username/password
// means "not configured", never an error.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	config SMTPConfig
}

func NewSMTPMailer(config SMTPConfig) Mailer {
	return &smtpMailer{config: config}
}

func (m *smtpMailer) IsConfigured() bool {
	return m.config.Username != "" && m.config.Password != ""
}

func (m *smtpMailer) Send(recipients []string, subject, htmlBody, attachmentPath string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if attachmentPath != "" {
		msg.Attach(attachmentPath)
	}

	dialer := gomail.NewDialer(m.config.Host, m.config.Port, m.config.Username, m.config.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
