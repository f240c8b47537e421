// Package web delivers push notifications to browsers through the Web Push protocol (VAPID).
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const providerName = "WebPush"

// Config carries the VAPID identity of this server.
type Config struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
	// TTL is how long the push service keeps an undelivered message. Defaults to 60s.
	TTL time.Duration
}

type Sender struct {
	cfg        Config
	httpClient webpush.HTTPClient
	now        func() time.Time
	logger     *slog.Logger
}

func NewSender(cfg Config, httpClient webpush.HTTPClient, logger *slog.Logger) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	return &Sender{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
		logger:     logger.With("component", "WebPushSender"),
	}
}

func (s *Sender) ProviderName() string          { return providerName }
func (s *Sender) Channel() notification.Channel { return notification.ChannelPush }

// Send treats the recipient's device token as the browser's PushSubscription JSON:
//
//	{"endpoint":"https://...","keys":{"p256dh":"...","auth":"..."}}
func (s *Sender) Send(ctx context.Context, n notification.Notification) (*notification.Result, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(n.Recipient.DeviceToken), &sub); err != nil || sub.Endpoint == "" {
		return notification.Failed(n.ID, providerName, "device token is not a web push subscription", s.now()), nil
	}

	// 1. Prepare Payload (Standard JSON structure)
	payloadBytes, err := json.Marshal(map[string]any{
		"notification": map[string]string{
			"title": n.Title(),
			"body":  n.Body,
		},
		"data": n.Data(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	// 2. Send via webpush-go
	resp, err := webpush.SendNotificationWithContext(ctx, payloadBytes, &sub, &webpush.Options{
		Subscriber:      s.cfg.SubscriberEmail,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL / time.Second),
		HTTPClient:      s.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("web push transport failed: %w", err)
	}
	defer resp.Body.Close()

	// 3. Handle Response Codes
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK, http.StatusAccepted:
		return notification.Succeeded(n.ID, providerName, messageID(resp), s.now()), nil
	case http.StatusGone, http.StatusNotFound:
		// Subscription is dead; retrying will not help.
		s.logger.Info("Web push subscription expired", "notification_id", n.ID, "status", resp.StatusCode)
		return notification.Failed(n.ID, providerName,
			fmt.Sprintf("subscription expired (%d)", resp.StatusCode), s.now()), nil
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusForbidden, http.StatusUnauthorized:
		s.logger.Warn("Web push rejected", "notification_id", n.ID, "status", resp.StatusCode)
		return notification.Failed(n.ID, providerName,
			fmt.Sprintf("push service rejected request (%d)", resp.StatusCode), s.now()), nil
	default:
		return nil, fmt.Errorf("push service returned %d", resp.StatusCode)
	}
}

// messageID uses the push service's message URL when it returns one.
func messageID(resp *http.Response) string {
	if loc := resp.Header.Get("Location"); loc != "" {
		if i := strings.LastIndex(loc, "/"); i >= 0 && i < len(loc)-1 {
			return loc[i+1:]
		}
		return loc
	}
	return uuid.NewString()
}
