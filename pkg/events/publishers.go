// Package events contains general purpose dispatch.EventPublisher implementations.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// LoggingPublisher writes every event to a structured logger.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger.With("component", "EventLog")}
}

func (p *LoggingPublisher) Publish(ctx context.Context, e notification.Event) error {
	level := slog.LevelInfo
	switch e.Type {
	case notification.EventRetrying:
		level = slog.LevelWarn
	case notification.EventFailed:
		level = slog.LevelError
	}

	attrs := []any{
		"event_type", string(e.Type),
		"notification_id", e.NotificationID,
		"notification_type", string(e.NotificationType),
		"attempt", e.AttemptNumber,
	}
	if e.ProviderName != "" {
		attrs = append(attrs, "provider", e.ProviderName, "provider_message_id", e.ProviderMessageID)
	}
	if e.ErrorMessage != "" {
		attrs = append(attrs, "err", e.ErrorMessage)
	}

	p.logger.Log(ctx, level, "Notification event", attrs...)
	return nil
}

// Fanout delivers each event to every publisher, in order.
// All publishers are called even if some fail or panic; their errors are joined.
type Fanout []dispatch.EventPublisher

func (f Fanout) Publish(ctx context.Context, e notification.Event) error {
	var errs []error
	for i, p := range f {
		if p == nil {
			continue
		}
		if err := publishOne(ctx, p, e); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func publishOne(ctx context.Context, p dispatch.EventPublisher, e notification.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return p.Publish(ctx, e)
}

// Combine drops nil publishers and returns nil, the single publisher, or a Fanout.
func Combine(publishers ...dispatch.EventPublisher) dispatch.EventPublisher {
	var kept Fanout
	for _, p := range publishers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return kept
}
