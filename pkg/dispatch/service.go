// Package dispatch contains the delivery core: sender routing, validation,
// the retry loop and lifecycle event emission.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Config assembles a Service. Only Senders is required.
type Config struct {
	// Senders holds at most one sender per channel.
	Senders []Sender

	// Validators is consulted only when ValidationEnabled is true.
	Validators        map[notification.Channel]Validator
	ValidationEnabled bool

	// RetryPolicy defaults to a single attempt.
	RetryPolicy RetryPolicy

	// Publisher is optional; nil disables event emission.
	Publisher EventPublisher

	// Clock and Sleep default to time.Now and time.Sleep.
	Clock func() time.Time
	Sleep func(time.Duration)
}

// Service routes notifications to their channel's sender and drives the attempt loop.
// It holds no per-call mutable state and is safe for concurrent use.
type Service struct {
	email Sender
	sms   Sender
	push  Sender

	validators        map[notification.Channel]Validator
	validationEnabled bool
	policy            RetryPolicy
	publisher         EventPublisher

	clock  func() time.Time
	sleep  func(time.Duration)
	logger *slog.Logger
}

// NewService builds the sender registry once. Registering two senders for the
// same channel is a configuration error.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		validators:        make(map[notification.Channel]Validator, len(cfg.Validators)),
		validationEnabled: cfg.ValidationEnabled,
		policy:            cfg.RetryPolicy,
		publisher:         cfg.Publisher,
		clock:             cfg.Clock,
		sleep:             cfg.Sleep,
		logger:            logger.With("component", "DispatchService"),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	for c, v := range cfg.Validators {
		if v != nil {
			s.validators[c] = v
		}
	}

	for _, sender := range cfg.Senders {
		if sender == nil {
			continue
		}
		slot, err := s.slotFor(sender.Channel())
		if err != nil {
			return nil, err
		}
		if *slot != nil {
			return nil, &ConfigurationError{
				Channel: sender.Channel(),
				msg: fmt.Sprintf("duplicate %s sender: %s already registered, got %s",
					sender.Channel(), (*slot).ProviderName(), sender.ProviderName()),
			}
		}
		*slot = sender
	}

	return s, nil
}

func (s *Service) slotFor(c notification.Channel) (*Sender, error) {
	switch c {
	case notification.ChannelEmail:
		return &s.email, nil
	case notification.ChannelSMS:
		return &s.sms, nil
	case notification.ChannelPush:
		return &s.push, nil
	}
	return nil, unsupportedChannel(c)
}

func (s *Service) senderFor(c notification.Channel) (Sender, error) {
	slot, err := s.slotFor(c)
	if err != nil {
		return nil, err
	}
	if *slot == nil {
		return nil, missingSender(c)
	}
	return *slot, nil
}

// RetryPolicy returns the policy the service was built with.
func (s *Service) RetryPolicy() RetryPolicy {
	return s.policy
}

// Send delivers n synchronously, including the waits between attempts.
//
// Only *ConfigurationError and *ValidationError are returned as errors.
// Every delivery failure is reported as a FAILED Result with a nil error.
func (s *Service) Send(ctx context.Context, n notification.Notification) (notification.Result, error) {
	// 1. Resolve the sender.
	sender, err := s.senderFor(n.Channel)
	if err != nil {
		return notification.Result{}, err
	}

	// 2. Validate once, before any event.
	if s.validationEnabled {
		if v, ok := s.validators[n.Channel]; ok {
			if err := v.Validate(n); err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					vErr = NewValidationError(n.Channel, err.Error())
				}
				return notification.Result{}, vErr
			}
		}
	}

	log := s.logger.With(
		"notification_id", n.ID,
		"channel", string(n.Channel),
		"provider", sender.ProviderName(),
	)
	maxAttempts := s.policy.MaxAttempts()

	// 3. Announce.
	s.publish(ctx, notification.Event{Type: notification.EventSending, AttemptNumber: 1}, n)

	// 4. Attempt loop.
	var lastResult *notification.Result
	var lastError string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Info("Sending notification", "attempt", attempt, "max_attempts", maxAttempts)

		result, err := s.attempt(ctx, sender, n)
		switch {
		case err != nil:
			lastResult = nil
			lastError = err.Error()
		case result == nil:
			lastResult = nil
			lastError = "sender returned no result"
		case result.IsSuccess():
			s.publish(ctx, notification.Event{
				Type:              notification.EventSuccess,
				AttemptNumber:     attempt,
				ProviderName:      result.ProviderName,
				ProviderMessageID: result.ProviderMessageID,
			}, n)
			return *result, nil
		default:
			lastResult = result
			lastError = result.ErrorMessage
		}
		log.Warn("Attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "err", lastError)

		if attempt < maxAttempts {
			s.publish(ctx, notification.Event{
				Type:          notification.EventRetrying,
				AttemptNumber: attempt + 1,
				ErrorMessage:  lastError,
			}, n)
			s.sleep(s.policy.DelayForAttempt(attempt))
		}
	}

	// 5. Exhausted.
	s.publish(ctx, notification.Event{
		Type:          notification.EventFailed,
		AttemptNumber: maxAttempts,
		ErrorMessage:  lastError,
	}, n)
	log.Error("Notification delivery failed", "attempts", maxAttempts, "err", lastError)

	if lastResult != nil {
		return *lastResult, nil
	}
	return notification.Result{
		NotificationID: n.ID,
		Status:         notification.StatusFailed,
		ErrorMessage:   lastError,
		Timestamp:      s.clock(),
	}, nil
}

// attempt calls the sender once. A panicking sender counts as a failed attempt.
func (s *Service) attempt(ctx context.Context, sender Sender, n notification.Notification) (result *notification.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("sender %s panicked: %v", sender.ProviderName(), r)
		}
	}()
	return sender.Send(ctx, n)
}

// publish fills the notification fields and timestamp, then hands the event to the publisher.
// Publisher errors and panics are logged and swallowed.
func (s *Service) publish(ctx context.Context, event notification.Event, n notification.Notification) {
	if s.publisher == nil {
		return
	}
	event.NotificationID = n.ID
	event.NotificationType = n.Channel
	event.Timestamp = s.clock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Event publisher panicked", "event_type", string(event.Type), "panic", r)
		}
	}()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", string(event.Type),
			"notification_id", n.ID,
			"err", err,
		)
	}
}
