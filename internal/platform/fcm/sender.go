// --- File: internal/platform/fcm/sender.go ---
// Package fcm delivers push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const providerName = "Firebase"

// MessagingClient defines the subset of the Firebase Messaging API we use.
// *messaging.Client satisfies it.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Sender struct {
	client MessagingClient
	icon   string
	now    func() time.Time
	logger *slog.Logger

	// isPermanent decides whether an SDK error means the token or payload is bad.
	isPermanent func(error) bool
}

// NewSender accepts the concrete client but stores it as the interface.
func NewSender(client MessagingClient, icon string, logger *slog.Logger) *Sender {
	return &Sender{
		client:      client,
		icon:        icon,
		now:         time.Now,
		logger:      logger.With("component", "FCMSender"),
		isPermanent: isPermanentError,
	}
}

func (s *Sender) ProviderName() string          { return providerName }
func (s *Sender) Channel() notification.Channel { return notification.ChannelPush }

func (s *Sender) Send(ctx context.Context, n notification.Notification) (*notification.Result, error) {
	title := n.Title()
	msg := &messaging.Message{
		Token: n.Recipient.DeviceToken,
		Data:  n.Data(),
		Notification: &messaging.Notification{
			Title: title,
			Body:  n.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: title,
				Body:  n.Body,
				Icon:  s.icon,
			},
		},
	}

	messageID, err := s.client.Send(ctx, msg)
	if err != nil {
		// ✅ A dead token or a malformed message will never succeed; report it as data.
		if s.isPermanent(err) {
			s.logger.Warn("FCM rejected notification", "notification_id", n.ID, "err", err)
			return notification.Failed(n.ID, providerName, err.Error(), s.now()), nil
		}
		return nil, fmt.Errorf("fcm transport failed: %w", err)
	}

	return notification.Succeeded(n.ID, providerName, messageID, s.now()), nil
}

func isPermanentError(err error) bool {
	return messaging.IsInvalidArgument(err) ||
		messaging.IsRegistrationTokenNotRegistered(err) ||
		messaging.IsUnregistered(err) ||
		messaging.IsSenderIDMismatch(err)
}
