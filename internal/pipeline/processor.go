// --- File: internal/pipeline/processor.go ---
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Dispatcher is the part of dispatch.Service the processor needs.
type Dispatcher interface {
	Send(ctx context.Context, n notification.Notification) (notification.Result, error)
}

// DeliveryLedger remembers delivered notifications across redeliveries.
type DeliveryLedger interface {
	Lookup(ctx context.Context, notificationID string) (*notification.Result, error)
	Remember(ctx context.Context, res notification.Result) error
}

// NewProcessor creates the stream processor that dispatches each notification.
// ledger may be nil.
//
// Returning nil acks the message; returning an error nacks it so Pub/Sub redelivers.
func NewProcessor(
	dispatcher Dispatcher,
	ledger DeliveryLedger,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[notification.Notification] {

	return func(ctx context.Context, original messagepipeline.Message, n *notification.Notification) error {
		procLogger := logger.With(
			"notification_id", n.ID,
			"channel", string(n.Channel),
			"pubsub_msg_id", original.ID,
		)

		// 1. Dedupe
		if ledger != nil {
			prior, err := ledger.Lookup(ctx, n.ID)
			if err != nil {
				procLogger.Warn("Delivery ledger unavailable, sending anyway", "err", err)
			} else if prior != nil {
				procLogger.Info("Notification already delivered; acking duplicate", "provider_msg_id", prior.ProviderMessageID)
				return nil
			}
		}

		// 2. Dispatch
		res, err := dispatcher.Send(ctx, *n)
		if err != nil {
			if dispatch.IsValidationError(err) {
				// A bad request never becomes valid, so redelivery is pointless.
				procLogger.Warn("Dropping invalid notification", "err", err)
				return nil
			}
			procLogger.Error("Dispatch rejected", "err", err)
			return err
		}

		// 3. Outcome
		if !res.IsSuccess() {
			procLogger.Error("Delivery failed", "provider", res.ProviderName, "err", res.ErrorMessage)
			return fmt.Errorf("delivery of %s failed: %s", n.ID, res.ErrorMessage)
		}

		if ledger != nil {
			if err := ledger.Remember(ctx, res); err != nil {
				procLogger.Warn("Failed to record delivery", "err", err)
			}
		}
		procLogger.Info("Notification delivered", "provider", res.ProviderName, "provider_msg_id", res.ProviderMessageID)
		return nil
	}
}
