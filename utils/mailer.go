package utils

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"
)

// Mailer delivers nurture emails over SMTP. It satisfies the automation
// package's Transport interface.
type Mailer struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

func NewMailer(host string, port int, username, password, fromEmail, fromName string) *Mailer {
	return &Mailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers one message, retrying transient SMTP failures with a square
// backoff before giving up.
func (m *Mailer) Send(to, subject, body, messageID string) error {
	if err := checkmail.ValidateFormat(to); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", to, err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("X-Message-ID", messageID)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	dialer.TLSConfig = &tls.Config{ServerName: m.host}

	maxRetries := 3
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
		if lastErr = dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to send after %d attempts: %w", maxRetries, lastErr)
}
