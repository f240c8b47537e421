// --- File: internal/platform/apns/sender.go ---
// Package apns provides the client for the Apple Push Notification Service.
package apns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const providerName = "APNs"

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

type Sender struct {
	client APNSClient
	topic  string // The App Bundle ID (e.g. com.tinywide.messenger)
	sound  string
	now    func() time.Time
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw string content of the .p8 file
	P8KeyContent string
	// Development routes pushes to the sandbox gateway.
	Development bool
	Sound       string
}

// NewSender creates a configured APNs sender.
// It parses the P8 key immediately to fail fast on startup if credentials are bad.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tokenSource)
	if cfg.Development {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return NewSenderWithClient(client, cfg.BundleID, cfg.Sound, logger), nil
}

// NewSenderWithClient wires an existing client, e.g. a certificate based one.
func NewSenderWithClient(client APNSClient, topic, sound string, logger *slog.Logger) *Sender {
	if sound == "" {
		sound = "default"
	}
	return &Sender{
		client: client,
		topic:  topic,
		sound:  sound,
		now:    time.Now,
		logger: logger.With("component", "APNSSender"),
	}
}

func (s *Sender) ProviderName() string          { return providerName }
func (s *Sender) Channel() notification.Channel { return notification.ChannelPush }

// Send pushes to a single device token. The APNs HTTP/2 API is unary, so
// there is exactly one request per notification.
func (s *Sender) Send(ctx context.Context, n notification.Notification) (*notification.Result, error) {
	// 1. Build Payload
	builder := payload.NewPayload().
		AlertTitle(n.Title()).
		AlertBody(n.Body).
		Sound(s.sound)
	for k, v := range n.Data() {
		builder.Custom(k, v)
	}

	req := &apns2.Notification{
		DeviceToken: n.Recipient.DeviceToken,
		Topic:       s.topic,
		Payload:     builder,
	}
	if n.ID != "" {
		req.CollapseID = n.ID
	}

	// 2. Send (Synchronous HTTP/2, bounded by ctx)
	res, err := s.client.PushWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("apns transport failed: %w", err)
	}

	// 3. Handle Response Codes
	if res.Sent() {
		return notification.Succeeded(n.ID, providerName, res.ApnsID, s.now()), nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		s.logger.Info("APNs token is dead", "notification_id", n.ID, "reason", res.Reason)
	default:
		// TopicDisallowed, PayloadEmpty etc. mean our configuration is wrong, not the token.
		s.logger.Warn("APNs rejected notification", "notification_id", n.ID, "reason", res.Reason, "status", res.StatusCode)
	}
	if res.StatusCode >= 500 || res.StatusCode == 429 {
		return nil, fmt.Errorf("apns returned %d: %s", res.StatusCode, res.Reason)
	}
	return notification.Failed(n.ID, providerName, res.Reason, s.now()), nil
}
