// Package mailer sends transactional email over SMTP. Direct TLS on port
// 465, STARTTLS otherwise.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/pitchfinderuk/pitchfinder-api/internal/alerts"
	"github.com/pitchfinderuk/pitchfinder-api/internal/config"
)

// Mailer sends email through a configured SMTP relay. Nil-safe: when SMTP is
// not configured, New returns nil and sends become logged no-ops via the
// nil receiver methods.
type Mailer struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	logger *slog.Logger
}

// New creates a mailer from config. Returns nil when no SMTP host is set.
func New(cfg *config.Config, logger *slog.Logger) *Mailer {
	if !cfg.SMTPConfigured() {
		return nil
	}
	return &Mailer{
		host:   cfg.SMTPHost,
		port:   cfg.SMTPPort,
		user:   cfg.SMTPUser,
		pass:   cfg.SMTPPass,
		from:   cfg.SMTPFrom,
		logger: logger,
	}
}

var _ alerts.Sender = (*Mailer)(nil)

// SendDigest renders and delivers a digest email.
func (m *Mailer) SendDigest(ctx context.Context, to string, d *alerts.Digest) error {
	body, err := RenderDigest(d)
	if err != nil {
		return err
	}
	return m.Send(ctx, to, d.Subject, body)
}

// SendVerification delivers the double-opt-in confirmation email.
func (m *Mailer) SendVerification(ctx context.Context, to, verifyURL string) error {
	body, err := renderVerification(to, verifyURL)
	if err != nil {
		return err
	}
	return m.Send(ctx, to, "Confirm your tournament alert", body)
}

// Send delivers one HTML email. The context bounds the connection dial;
// net/smtp itself has no context support, so the platform invocation
// timeout backstops the rest of the exchange.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m == nil {
		slog.Default().Info("email send skipped (SMTP not configured)", "to", to, "subject", subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	tlsCfg := &tls.Config{ServerName: m.host}

	client, err := m.dial(ctx, addr, tlsCfg)
	if err != nil {
		return err
	}
	defer client.Quit()

	if m.user != "" {
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	msg := fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		to, m.from, subject, htmlBody)
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

func (m *Mailer) dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*smtp.Client, error) {
	var dialer net.Dialer

	if m.port == 465 {
		conn, err := (&tls.Dialer{NetDialer: &dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, m.host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if err := client.StartTLS(tlsCfg); err != nil {
		client.Close()
		return nil, fmt.Errorf("smtp starttls: %w", err)
	}
	return client, nil
}
