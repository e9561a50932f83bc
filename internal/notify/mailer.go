package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"techstore/internal/config"
)

// DefaultSMTPTimeout bounds a whole SMTP conversation when the caller's
// context carries no deadline.
const DefaultSMTPTimeout = 10 * time.Second

// Message is a single outbound HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr    string
	host    string
	auth    smtp.Auth
	from    string
	timeout time.Duration
	send    func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	m := &SMTPMailer{
		addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		host:    cfg.Host,
		auth:    auth,
		from:    cfg.From,
		timeout: DefaultSMTPTimeout,
	}
	m.send = m.deliver
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email %q has no recipients", msg.Subject)
	}
	if err := m.send(ctx, m.addr, m.auth, m.from, msg.To, buildMIME(m.from, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// deliver is smtp.SendMail over a connection dialled with ctx. The
// connection deadline covers every read and write of the conversation.
func (m *SMTPMailer) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	// Unblock a stalled conversation as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMIME(from string, msg Message) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: " + from + "\r\n")
	buf.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	buf.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	buf.WriteString("\r\n")
	return buf.Bytes()
}
