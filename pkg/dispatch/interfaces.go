// --- File: pkg/dispatch/interfaces.go ---
package dispatch

import (
	"context"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Sender defines the contract for a component that delivers notifications
// of one channel through a specific provider (e.g., SMTP, Twilio, FCM).
type Sender interface {
	// Send performs one delivery attempt.
	// A provider rejection is reported as a FAILED Result; a returned error
	// means the attempt could not be completed at all. Both count as a failed attempt.
	Send(ctx context.Context, n notification.Notification) (*notification.Result, error)

	// ProviderName is a human readable provider label, e.g. "SendGrid".
	ProviderName() string

	// Channel is the single channel this sender serves.
	Channel() notification.Channel
}

// Validator checks a notification before any delivery attempt is made.
type Validator interface {
	// Validate returns a *ValidationError describing the first problem found.
	Validate(n notification.Notification) error
}

// EventPublisher receives lifecycle events. Implementations may block;
// errors they return are logged and otherwise ignored by the Service.
type EventPublisher interface {
	Publish(ctx context.Context, event notification.Event) error
}

// EventPublisherFunc adapts a function to an EventPublisher.
type EventPublisherFunc func(ctx context.Context, event notification.Event) error

func (f EventPublisherFunc) Publish(ctx context.Context, event notification.Event) error {
	return f(ctx, event)
}
