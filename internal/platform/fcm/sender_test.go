// --- File: internal/platform/fcm/sender_test.go ---
package fcm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// MockClient satisfies the MessagingClient interface
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errTokenGone = errors.New("registration token is not registered")

func TestFCMSender_Lifecycle(t *testing.T) {
	logger := newTestLogger()
	ctx := context.Background()
	push := notification.NewPush("p1", notification.Recipient{DeviceToken: "fcm-token-123"}, "Hello", "World",
		map[string]string{"conversation": "c-9"})

	t.Run("Happy Path - message accepted", func(t *testing.T) {
		mockClient := new(MockClient)
		sender := NewSender(mockClient, "/assets/icons/icon-192x192.png", logger)

		mockClient.On("Send", ctx, mock.MatchedBy(func(msg *messaging.Message) bool {
			return msg.Token == "fcm-token-123" &&
				msg.Notification.Title == "Hello" &&
				msg.Notification.Body == "World" &&
				msg.Data["conversation"] == "c-9" &&
				msg.Webpush.Notification.Icon == "/assets/icons/icon-192x192.png"
		})).Return("projects/demo/messages/1", nil)

		res, err := sender.Send(ctx, push)

		require.NoError(t, err)
		assert.True(t, res.IsSuccess())
		assert.Equal(t, "Firebase", res.ProviderName)
		assert.Equal(t, "projects/demo/messages/1", res.ProviderMessageID)
		mockClient.AssertExpectations(t)
	})

	t.Run("Transport Failure (Retryable)", func(t *testing.T) {
		mockClient := new(MockClient)
		sender := NewSender(mockClient, "", logger)
		mockClient.On("Send", ctx, mock.Anything).Return("", errors.New("network down"))

		res, err := sender.Send(ctx, push)

		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "network down")
	})

	t.Run("Dead token is a FAILED result", func(t *testing.T) {
		mockClient := new(MockClient)
		sender := NewSender(mockClient, "", logger)
		sender.isPermanent = func(err error) bool { return errors.Is(err, errTokenGone) }
		mockClient.On("Send", ctx, mock.Anything).Return("", errTokenGone)

		res, err := sender.Send(ctx, push)

		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, res.Status)
		assert.Equal(t, errTokenGone.Error(), res.ErrorMessage)
	})

	t.Run("Plain errors are not classified as permanent", func(t *testing.T) {
		assert.False(t, isPermanentError(errors.New("boom")))
	})
}
