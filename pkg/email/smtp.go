package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/mail.v2"
)

// SMTPClient is the fallback transport for installations without an email API
// key. SMTP does not return a provider message id, so a generated one stands
// in to keep the dispatch results uniform.
type SMTPClient struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPClient(host string, port int, username, password, from string) *SMTPClient {
	return &SMTPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (c *SMTPClient) Send(_ context.Context, to []string, subject, html, text string) (string, error) {
	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	d := mail.NewDialer(c.host, c.port, c.username, c.password)
	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return uuid.New().String(), nil
}
