package utils

import (
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends HTML email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, user, pass string) *SMTPMailer {
	return &SMTPMailer{from: user, dialer: gomail.NewDialer(host, port, user, pass)}
}

func (m *SMTPMailer) SendEmail(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)
	return m.dialer.DialAndSend(msg)
}

// LogMailer only logs. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) SendEmail(to, subject, _ string) error {
	log.Printf("email to %s not sent (SMTP not configured): %s", to, subject)
	return nil
}
