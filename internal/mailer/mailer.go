// Package mailer sends multipart text/html email over SMTP.
package mailer

import (
	"errors" // Sentinel errors
	"fmt"    // Error wrapping
	"time"   // Date header and dial timeout

	"github.com/wneessen/go-mail" // SMTP client and MIME message builder
)

// ErrMailDisabled is returned by a Sender that has no SMTP host configured
var ErrMailDisabled = errors.New("mail delivery is not configured")

// Email is one outgoing message
type Email struct {
	To       string // Recipient address
	Subject  string // Subject line
	TextBody string // Plain text alternative
	HTMLBody string // HTML alternative
}

// Sender delivers email
type Sender interface {
	Send(msg Email) error
}

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host string // Empty disables delivery
	Port int    // Usually 587
	User string // Optional, enables PLAIN auth
	Pass string // Password for User
	From string // Envelope and header sender
}

// SMTPSender sends mail through a single SMTP relay
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a Sender for cfg
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// sendTimeout bounds one SMTP hand-off
const sendTimeout = 15 * time.Second

// Send delivers msg, or returns ErrMailDisabled when no host is configured
func (s *SMTPSender) Send(msg Email) error {
	if s.cfg.Host == "" {
		return ErrMailDisabled
	}
	m, err := buildMessage(s.cfg.From, msg, time.Now())
	if err != nil {
		return err
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(sendTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic), // STARTTLS when the relay offers it
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Pass),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// buildMessage renders msg as a UTF-8 multipart/alternative message.
// Headers are RFC 2047 encoded and bodies quoted-printable.
func buildMessage(from string, msg Email, at time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(at)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}
	return m, nil
}
