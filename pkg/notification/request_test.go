package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

func fixedID() string { return "generated-id" }

func TestRequest_ToNotification(t *testing.T) {
	t.Run("Email keeps subject and recipient", func(t *testing.T) {
		req := notification.Request{
			ID:      "n-1",
			Type:    "email",
			Email:   "user@example.com",
			Subject: "Welcome",
			Body:    "Hello there",
		}

		n, err := req.ToNotification(fixedID)
		require.NoError(t, err)

		assert.Equal(t, "n-1", n.ID)
		assert.Equal(t, notification.ChannelEmail, n.Channel)
		assert.Equal(t, "user@example.com", n.Recipient.Email)
		assert.Equal(t, "Welcome", n.Subject())
		assert.Equal(t, "Hello there", n.Body)
		assert.Nil(t, n.Push)
	})

	t.Run("Push carries title and data", func(t *testing.T) {
		req := notification.Request{
			Type:        "PUSH",
			DeviceToken: "device-token-123",
			Title:       "Ping",
			Body:        "You have mail",
			Data:        map[string]string{"thread": "42"},
		}

		n, err := req.ToNotification(fixedID)
		require.NoError(t, err)

		assert.Equal(t, "generated-id", n.ID)
		assert.Equal(t, "Ping", n.Title())
		assert.Equal(t, "42", n.Data()["thread"])
		assert.Empty(t, n.Subject())
	})

	t.Run("SMS copies metadata", func(t *testing.T) {
		req := notification.Request{
			ID:          "n-2",
			Type:        "SMS",
			PhoneNumber: "+15551234567",
			Body:        "code 1234",
			Metadata:    map[string]string{"tenant": "acme"},
		}

		n, err := req.ToNotification(fixedID)
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelSMS, n.Channel)
		assert.Equal(t, "acme", n.Metadata["tenant"])
		require.NotNil(t, n.SMS)
	})

	t.Run("Unknown type is rejected", func(t *testing.T) {
		_, err := notification.Request{Type: "FAX"}.ToNotification(fixedID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported notification type")
	})
}

func TestNotification_Accessors(t *testing.T) {
	n := notification.NewSMS("n-1", notification.Recipient{PhoneNumber: "+15551234567"}, "hi", notification.SMSContent{})

	assert.Empty(t, n.Title())
	assert.Empty(t, n.Subject())
	assert.NotNil(t, n.Data())
	assert.NotNil(t, n.Metadata)
}
