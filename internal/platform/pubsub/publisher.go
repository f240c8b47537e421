// Package pubsub publishes notification lifecycle events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/pubsub/v2"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Attribute keys set on every status message so subscribers can filter without decoding.
const (
	AttrEventType        = "eventType"
	AttrNotificationID   = "notificationId"
	AttrNotificationType = "notificationType"
	AttrAttempt          = "attemptNumber"
)

// EventPublisher implements dispatch.EventPublisher on top of a Pub/Sub topic.
type EventPublisher struct {
	publisher *pubsub.Publisher
	topicID   string
	logger    *slog.Logger
}

func NewEventPublisher(client *pubsub.Client, topicID string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: client.Publisher(topicID),
		topicID:   topicID,
		logger:    logger.With("component", "StatusEventPublisher", "topic", topicID),
	}
}

// Publish blocks until the server acknowledges the message.
func (p *EventPublisher) Publish(ctx context.Context, e notification.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventType:        string(e.Type),
			AttrNotificationID:   e.NotificationID,
			AttrNotificationType: string(e.NotificationType),
			AttrAttempt:          strconv.Itoa(e.AttemptNumber),
		},
	}

	serverID, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", e.Type, e.NotificationID, err)
	}
	p.logger.Debug("Event published", "event_type", string(e.Type), "notification_id", e.NotificationID, "msg_id", serverID)
	return nil
}

// Stop flushes pending messages.
func (p *EventPublisher) Stop() {
	p.publisher.Stop()
}
