package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
)

var ErrBadRecipient = errors.New("invalid mail recipient")

// SMTPMailer delivers reset links through an SMTP relay.
type SMTPMailer struct {
	Addr     string
	Auth     smtp.Auth
	From     string
	ResetURL string

	// SendMail defaults to smtp.SendMail.
	SendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host string, port string, username string, password string, from string, resetURL string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		Addr:     net.JoinHostPort(host, port),
		Auth:     auth,
		From:     from,
		ResetURL: resetURL,
	}
}

func (m *SMTPMailer) resetLink(token string) (string, error) {
	u, err := url.Parse(m.ResetURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *SMTPMailer) SendReset(ctx context.Context, email string, token string) error {
	if email == "" || strings.ContainsAny(email, "\r\n") {
		return ErrBadRecipient
	}
	link, err := m.resetLink(token)
	if err != nil {
		return err
	}

	msg := "To: " + email + "\r\n" +
		"From: " + m.From + "\r\n" +
		"Subject: Reset your Heartfolio password\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Open this link to choose a new password:\r\n\r\n" +
		link + "\r\n\r\n" +
		"If you did not ask for a reset, you can ignore this email.\r\n"

	send := m.SendMail
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(m.Addr, m.Auth, m.From, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}
