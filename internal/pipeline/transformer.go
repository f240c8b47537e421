// --- File: internal/pipeline/transformer.go ---
// Package pipeline contains the core message processing components for the service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// NotificationTransformer is a dataflow Transformer that unmarshals a raw
// message payload into a notification.Notification.
//
// Requests without an id take the Pub/Sub message id, so a redelivered
// message keeps the same notification id.
func NotificationTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*notification.Notification, bool, error) {
	var req notification.Request

	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		// skip=true lets the StreamingService handle the Nack/DLQ logic.
		return nil, true, fmt.Errorf("failed to unmarshal notification request from message %s: %w", msg.ID, err)
	}

	n, err := req.ToNotification(func() string {
		if msg.ID != "" {
			return msg.ID
		}
		return uuid.NewString()
	})
	if err != nil {
		return nil, true, fmt.Errorf("failed to convert request from message %s: %w", msg.ID, err)
	}

	return &n, false, nil
}
