package report

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// EmailSink delivers the text report to the reviewer address over SMTP.
type EmailSink struct {
	host string
	port string
	user string
	pass string
	from string
	to   string
}

// NewEmailSink creates a new EmailSink.
func NewEmailSink(host, port, user, pass, from, to string) *EmailSink {
	return &EmailSink{host: host, port: port, user: user, pass: pass, from: from, to: to}
}

// Name implements Sink.
func (s *EmailSink) Name() string { return "email" }

// Deliver sends the report as a plain-text message. The connection is dialed
// with the context so a stuck SMTP server cannot outlive the sink timeout.
func (s *EmailSink) Deliver(ctx context.Context, r *Report) error {
	addr := net.JoinHostPort(s.host, s.port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	// Tie the connection lifetime to the context deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.user != "" {
		auth := smtp.PlainAuth("", s.user, s.pass, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(s.to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(s.buildMessage(r))); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

func (s *EmailSink) buildMessage(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", s.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", r.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(r.Text)
	return b.String()
}
