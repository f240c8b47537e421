package messaging_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/sandbox"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/messaging"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type eventLog struct {
	mu     sync.Mutex
	events []notification.Event
}

func (l *eventLog) Publish(_ context.Context, e notification.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func TestClient_Scenarios(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("Email through a SendGrid-like sender", func(t *testing.T) {
		events := &eventLog{}
		client, err := messaging.New(
			messaging.WithEmailSender(sandbox.NewSendGrid(logger)),
			messaging.WithEventPublisher(events),
			messaging.WithLogger(logger),
		)
		require.NoError(t, err)

		email := notification.NewEmail("e1", notification.Recipient{Email: "x@y.com"}, "S", "B", notification.EmailContent{})
		res, err := client.Send(ctx, email)
		require.NoError(t, err)

		assert.Equal(t, notification.StatusSuccess, res.Status)
		assert.Equal(t, "SendGrid", res.ProviderName)
		assert.True(t, strings.HasPrefix(res.ProviderMessageID, "sg-"))
		assert.Equal(t, 2, events.Len())
	})

	t.Run("SMS without an SMS sender", func(t *testing.T) {
		events := &eventLog{}
		client, err := messaging.New(
			messaging.WithEmailSender(sandbox.NewSendGrid(logger)),
			messaging.WithEventPublisher(events),
		)
		require.NoError(t, err)

		sms := notification.NewSMS("s1", notification.Recipient{PhoneNumber: "+15551234567"}, "hi", notification.SMSContent{})
		_, err = client.Send(ctx, sms)

		require.Error(t, err)
		assert.True(t, dispatch.IsConfigurationError(err))
		assert.Equal(t, "No sms sender configured", err.Error())
		assert.Zero(t, events.Len())
	})

	t.Run("Push with a short device token", func(t *testing.T) {
		events := &eventLog{}
		client, err := messaging.New(
			messaging.WithPushSender(sandbox.NewFirebase("demo", logger)),
			messaging.WithEventPublisher(events),
		)
		require.NoError(t, err)

		push := notification.NewPush("p1", notification.Recipient{DeviceToken: "abc"}, "T", "B", nil)
		_, err = client.Send(ctx, push)

		require.Error(t, err)
		assert.True(t, dispatch.IsValidationError(err))
		assert.Equal(t, "Invalid device token", err.Error())
		assert.Zero(t, events.Len())
	})
}

func TestClient_Options(t *testing.T) {
	logger := newTestLogger()

	t.Run("Duplicate channel is rejected", func(t *testing.T) {
		_, err := messaging.New(
			messaging.WithSMSSender(sandbox.NewTwilio(logger)),
			messaging.WithSender(sandbox.NewNexmo(logger)),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already configured")
	})

	t.Run("Sender registered on the wrong channel", func(t *testing.T) {
		_, err := messaging.New(messaging.WithEmailSender(sandbox.NewTwilio(logger)))
		require.Error(t, err)
	})

	t.Run("Validation can be disabled", func(t *testing.T) {
		client, err := messaging.New(
			messaging.WithPushSender(sandbox.NewFirebase("demo", logger)),
			messaging.WithValidation(false),
		)
		require.NoError(t, err)

		res, err := client.Send(context.Background(), notification.NewPush("p1", notification.Recipient{DeviceToken: "abc"}, "T", "B", nil))
		require.NoError(t, err)
		assert.True(t, res.IsSuccess())
	})

	t.Run("Default retry policy is a single attempt", func(t *testing.T) {
		client, err := messaging.New()
		require.NoError(t, err)
		assert.Equal(t, 1, client.Service().RetryPolicy().MaxAttempts())
	})

	t.Run("Retry policy is passed through", func(t *testing.T) {
		client, err := messaging.New(messaging.WithRetryPolicy(dispatch.WithBackoff(3, time.Second, 2)))
		require.NoError(t, err)
		assert.Equal(t, 3, client.Service().RetryPolicy().MaxAttempts())
	})
}

func TestClient_SendAsync(t *testing.T) {
	client, err := messaging.New(messaging.WithSMSSender(sandbox.NewTwilio(newTestLogger())))
	require.NoError(t, err)

	sms := notification.NewSMS("s1", notification.Recipient{PhoneNumber: "+15551234567"}, "hi", notification.SMSContent{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := client.SendAsync(ctx, sms).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Twilio", res.ProviderName)
}
