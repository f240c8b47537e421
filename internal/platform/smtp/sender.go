// Package smtp delivers email notifications over SMTP using go-mail.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const providerName = "SMTP"

// Dialer is the subset of *mail.Client the sender uses.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Encryption is one of "ssl_tls", "starttls" or "none".
	Encryption string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
}

type Sender struct {
	dialer   Dialer
	from     string
	fromName string
	now      func() time.Time
	logger   *slog.Logger
}

// NewSender builds the go-mail client from cfg. No connection is made until the first send.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("smtp from address is required")
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(tlsPolicyFromEncryption(cfg.Encryption)),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return NewSenderWithDialer(client, cfg, logger), nil
}

// NewSenderWithDialer is used when the caller owns the SMTP client.
func NewSenderWithDialer(dialer Dialer, cfg Config, logger *slog.Logger) *Sender {
	return &Sender{
		dialer:   dialer,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		now:      time.Now,
		logger:   logger.With("component", "SMTPSender"),
	}
}

func (s *Sender) ProviderName() string          { return providerName }
func (s *Sender) Channel() notification.Channel { return notification.ChannelEmail }

// Send renders n as a MIME message and hands it to the relay.
// Malformed addresses and permanent SMTP rejections become FAILED results;
// connection problems and temporary rejections are returned as errors.
func (s *Sender) Send(ctx context.Context, n notification.Notification) (*notification.Result, error) {
	msg, err := s.buildMessage(n)
	if err != nil {
		s.logger.Warn("Rejecting unsendable email", "notification_id", n.ID, "err", err)
		return notification.Failed(n.ID, providerName, err.Error(), s.now()), nil
	}

	if err := s.dialer.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && !sendErr.IsTemp() {
			s.logger.Warn("SMTP relay rejected email", "notification_id", n.ID, "err", err)
			return notification.Failed(n.ID, providerName, err.Error(), s.now()), nil
		}
		return nil, fmt.Errorf("smtp delivery failed: %w", err)
	}

	messageID := msg.GetMessageID()
	s.logger.Debug("Email handed to relay", "notification_id", n.ID, "message_id", messageID)
	return notification.Succeeded(n.ID, providerName, messageID, s.now()), nil
}

func (s *Sender) buildMessage(n notification.Notification) (*mail.Msg, error) {
	content := n.Email
	if content == nil {
		content = &notification.EmailContent{}
	}

	m := mail.NewMsg()

	from, fromName := s.from, s.fromName
	if content.FromEmail != "" {
		from, fromName = content.FromEmail, content.FromName
	}
	if err := m.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	if n.Recipient.Name != "" {
		if err := m.AddToFormat(n.Recipient.Name, n.Recipient.Email); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", n.Recipient.Email, err)
		}
	} else if err := m.To(n.Recipient.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", n.Recipient.Email, err)
	}
	if cc := cleanAddrs(content.CC); len(cc) > 0 {
		if err := m.Cc(cc...); err != nil {
			return nil, fmt.Errorf("invalid cc: %w", err)
		}
	}
	if bcc := cleanAddrs(content.BCC); len(bcc) > 0 {
		if err := m.Bcc(bcc...); err != nil {
			return nil, fmt.Errorf("invalid bcc: %w", err)
		}
	}

	m.Subject(content.Subject)
	m.SetMessageID()

	// Plain-text body first so clients without HTML support still render something.
	m.SetBodyString(mail.TypeTextPlain, n.Body)
	if content.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, content.HTMLBody)
	}
	return m, nil
}

func cleanAddrs(addrs []string) []string {
	var out []string
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch strings.ToLower(enc) {
	case "ssl_tls", "tls":
		return mail.TLSMandatory
	case "starttls", "":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
