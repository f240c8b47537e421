// Package messaging is the public entry point: it assembles a dispatch.Service
// from senders, validation settings, a retry policy and an event publisher.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Client sends notifications through the configured senders.
type Client struct {
	service *dispatch.Service
}

type options struct {
	senders           map[notification.Channel]dispatch.Sender
	validators        map[notification.Channel]dispatch.Validator
	validationEnabled bool
	retryPolicy       dispatch.RetryPolicy
	publisher         dispatch.EventPublisher
	clock             func() time.Time
	logger            *slog.Logger
	err               error
}

// Option configures a Client.
type Option func(*options)

func withChannelSender(c notification.Channel, s dispatch.Sender) Option {
	return func(o *options) {
		if s == nil {
			return
		}
		if s.Channel() != c {
			o.setErr(fmt.Errorf("sender %s serves %s, not %s", s.ProviderName(), s.Channel(), c))
			return
		}
		o.addSender(s)
	}
}

// WithEmailSender registers the email sender.
func WithEmailSender(s dispatch.Sender) Option { return withChannelSender(notification.ChannelEmail, s) }

// WithSMSSender registers the SMS sender.
func WithSMSSender(s dispatch.Sender) Option { return withChannelSender(notification.ChannelSMS, s) }

// WithPushSender registers the push sender.
func WithPushSender(s dispatch.Sender) Option { return withChannelSender(notification.ChannelPush, s) }

// WithSender registers s for whichever channel it reports.
func WithSender(s dispatch.Sender) Option {
	return func(o *options) {
		if s != nil {
			o.addSender(s)
		}
	}
}

// WithValidation toggles validation for every channel. Enabled by default.
func WithValidation(enabled bool) Option {
	return func(o *options) { o.validationEnabled = enabled }
}

// WithValidator replaces the built-in validator for one channel.
func WithValidator(c notification.Channel, v dispatch.Validator) Option {
	return func(o *options) { o.validators[c] = v }
}

// WithRetryPolicy sets the retry policy. The default is a single attempt.
func WithRetryPolicy(p dispatch.RetryPolicy) Option {
	return func(o *options) { o.retryPolicy = p }
}

// WithEventPublisher enables lifecycle events.
func WithEventPublisher(p dispatch.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func (o *options) addSender(s dispatch.Sender) {
	if existing, ok := o.senders[s.Channel()]; ok {
		o.setErr(fmt.Errorf("%s sender already configured (%s), cannot add %s",
			s.Channel(), existing.ProviderName(), s.ProviderName()))
		return
	}
	o.senders[s.Channel()] = s
}

func (o *options) setErr(err error) {
	if o.err == nil {
		o.err = err
	}
}

// New builds a Client. It fails if two senders claim the same channel.
func New(opts ...Option) (*Client, error) {
	o := &options{
		senders:           make(map[notification.Channel]dispatch.Sender),
		validators:        dispatch.DefaultValidators(),
		validationEnabled: true,
		retryPolicy:       dispatch.None(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("invalid messaging client configuration: %w", o.err)
	}

	senders := make([]dispatch.Sender, 0, len(o.senders))
	for _, c := range notification.Channels {
		if s, ok := o.senders[c]; ok {
			senders = append(senders, s)
		}
	}

	svc, err := dispatch.NewService(dispatch.Config{
		Senders:           senders,
		Validators:        o.validators,
		ValidationEnabled: o.validationEnabled,
		RetryPolicy:       o.retryPolicy,
		Publisher:         o.publisher,
		Clock:             o.clock,
	}, o.logger)
	if err != nil {
		return nil, err
	}
	return &Client{service: svc}, nil
}

// Send delivers n and blocks until a terminal result is known.
func (c *Client) Send(ctx context.Context, n notification.Notification) (notification.Result, error) {
	return c.service.Send(ctx, n)
}

// SendAsync delivers n on a separate goroutine.
func (c *Client) SendAsync(ctx context.Context, n notification.Notification) *dispatch.Future {
	return c.service.SendAsync(ctx, n)
}

// SendBatch delivers every notification concurrently.
func (c *Client) SendBatch(ctx context.Context, ns []notification.Notification) []dispatch.Outcome {
	return c.service.SendBatch(ctx, ns)
}

// Service exposes the underlying dispatch service for adapters that take one.
func (c *Client) Service() *dispatch.Service {
	return c.service
}
