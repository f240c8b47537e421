// Package sandbox provides senders that accept every notification without
// contacting a provider. They stand in for real providers in local runs and tests,
// and mint message ids in each provider's own format.
package sandbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const previewLength = 50

// Sender always succeeds.
type Sender struct {
	provider string
	channel  notification.Channel
	newID    func() string
	now      func() time.Time
	logger   *slog.Logger
}

func newSender(provider string, channel notification.Channel, newID func() string, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		channel:  channel,
		newID:    newID,
		now:      time.Now,
		logger:   logger.With("component", "SandboxSender", "provider", provider),
	}
}

// NewSendGrid simulates SendGrid email. Message ids look like "sg-<uuid>".
func NewSendGrid(logger *slog.Logger) *Sender {
	return newSender("SendGrid", notification.ChannelEmail, func() string {
		return "sg-" + uuid.NewString()
	}, logger)
}

// NewTwilio simulates Twilio SMS. Message ids are "SM" followed by 32 hex characters.
func NewTwilio(logger *slog.Logger) *Sender {
	return newSender("Twilio", notification.ChannelSMS, func() string {
		return "SM" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}, logger)
}

// NewNexmo simulates Nexmo (Vonage) SMS.
func NewNexmo(logger *slog.Logger) *Sender {
	return newSender("Nexmo", notification.ChannelSMS, func() string {
		return "nexmo-" + uuid.NewString()
	}, logger)
}

// NewFirebase simulates FCM. Message ids follow the FCM resource name format.
func NewFirebase(projectID string, logger *slog.Logger) *Sender {
	return newSender("Firebase", notification.ChannelPush, func() string {
		return "projects/" + projectID + "/messages/" + uuid.NewString()
	}, logger)
}

// New returns the sandbox sender for a channel, choosing a provider by name.
// An empty name picks the default provider for the channel.
func New(channel notification.Channel, provider, projectID string, logger *slog.Logger) (*Sender, bool) {
	switch {
	case channel == notification.ChannelEmail && (provider == "" || strings.EqualFold(provider, "sendgrid")):
		return NewSendGrid(logger), true
	case channel == notification.ChannelSMS && (provider == "" || strings.EqualFold(provider, "twilio")):
		return NewTwilio(logger), true
	case channel == notification.ChannelSMS && strings.EqualFold(provider, "nexmo"):
		return NewNexmo(logger), true
	case channel == notification.ChannelPush && (provider == "" || strings.EqualFold(provider, "firebase")):
		return NewFirebase(projectID, logger), true
	}
	return nil, false
}

func (s *Sender) ProviderName() string          { return s.provider }
func (s *Sender) Channel() notification.Channel { return s.channel }

func (s *Sender) Send(_ context.Context, n notification.Notification) (*notification.Result, error) {
	s.logger.Info("Sandbox delivery",
		"notification_id", n.ID,
		"recipient", recipientOf(n),
		"preview", preview(n),
	)

	id := s.newID()
	s.logger.Debug("Sandbox delivery accepted", "notification_id", n.ID, "provider_message_id", id)
	return notification.Succeeded(n.ID, s.provider, id, s.now()), nil
}

func recipientOf(n notification.Notification) string {
	switch n.Channel {
	case notification.ChannelEmail:
		return n.Recipient.Email
	case notification.ChannelSMS:
		return n.Recipient.PhoneNumber
	default:
		return n.Recipient.DeviceToken
	}
}

func preview(n notification.Notification) string {
	switch n.Channel {
	case notification.ChannelEmail:
		return n.Subject()
	case notification.ChannelPush:
		return n.Title()
	}
	r := []rune(n.Body)
	if len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}
	return n.Body
}
