package twilio_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/twilio"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const messagesURL = "https://api.twilio.com/2010-04-01/Accounts/AC123/Messages.json"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupSender(t *testing.T) (*twilio.Sender, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	sender, err := twilio.NewSender(twilio.Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550000000",
	}, &http.Client{Transport: transport}, newTestLogger())
	require.NoError(t, err)
	return sender, transport
}

var sms = notification.NewSMS("s1", notification.Recipient{PhoneNumber: "+15551234567"}, "Your code is 1234", notification.SMSContent{})

func TestTwilioSender_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("Created message returns its SID", func(t *testing.T) {
		sender, transport := setupSender(t)
		transport.RegisterResponder(http.MethodPost, messagesURL,
			func(req *http.Request) (*http.Response, error) {
				user, pass, ok := req.BasicAuth()
				if !ok || user != "AC123" || pass != "secret" {
					return httpmock.NewStringResponse(http.StatusUnauthorized, `{"code":20003,"message":"Authenticate"}`), nil
				}
				if err := req.ParseForm(); err != nil {
					return nil, err
				}
				if req.PostForm.Get("To") != "+15551234567" || req.PostForm.Get("From") != "+15550000000" {
					return httpmock.NewStringResponse(http.StatusBadRequest, `{"code":21211,"message":"bad form"}`), nil
				}
				return httpmock.NewStringResponse(http.StatusCreated, `{"sid":"SM0123456789abcdef0123456789abcdef","status":"queued"}`), nil
			})

		res, err := sender.Send(ctx, sms)
		require.NoError(t, err)

		assert.True(t, res.IsSuccess())
		assert.Equal(t, "Twilio", res.ProviderName)
		assert.Equal(t, "SM0123456789abcdef0123456789abcdef", res.ProviderMessageID)
		assert.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("Per-notification from number", func(t *testing.T) {
		sender, transport := setupSender(t)
		var from string
		transport.RegisterResponder(http.MethodPost, messagesURL,
			func(req *http.Request) (*http.Response, error) {
				_ = req.ParseForm()
				from = req.PostForm.Get("From")
				return httpmock.NewStringResponse(http.StatusCreated, `{"sid":"SM1"}`), nil
			})

		custom := notification.NewSMS("s2", notification.Recipient{PhoneNumber: "+15551234567"}, "hi", notification.SMSContent{FromNumber: "+15559999999"})
		_, err := sender.Send(ctx, custom)
		require.NoError(t, err)
		assert.Equal(t, "+15559999999", from)
	})

	t.Run("Client error is a FAILED result", func(t *testing.T) {
		sender, transport := setupSender(t)
		transport.RegisterResponder(http.MethodPost, messagesURL,
			httpmock.NewStringResponder(http.StatusBadRequest, `{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))

		res, err := sender.Send(ctx, sms)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, res.Status)
		assert.Contains(t, res.ErrorMessage, "21211")
		assert.Empty(t, res.ProviderMessageID)
	})

	t.Run("Rate limit body is an error", func(t *testing.T) {
		sender, transport := setupSender(t)
		transport.RegisterResponder(http.MethodPost, messagesURL,
			httpmock.NewStringResponder(http.StatusTooManyRequests, `{"code":20429,"message":"Too Many Requests","status":429}`))

		res, err := sender.Send(ctx, sms)
		require.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("Cancelled context never reaches the API", func(t *testing.T) {
		sender, transport := setupSender(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := sender.Send(cancelled, sms)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, transport.GetTotalCallCount())
	})

	testCases := []struct {
		name       string
		statusCode int
	}{
		{"Rate limited", http.StatusTooManyRequests},
		{"Server error", http.StatusInternalServerError},
		{"Unavailable", http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name+" is returned as an error", func(t *testing.T) {
			sender, transport := setupSender(t)
			transport.RegisterResponder(http.MethodPost, messagesURL, httpmock.NewStringResponder(tc.statusCode, ""))

			res, err := sender.Send(ctx, sms)
			require.Error(t, err)
			assert.Nil(t, res)
		})
	}

	t.Run("Transport failure is returned as an error", func(t *testing.T) {
		sender, transport := setupSender(t)
		transport.RegisterResponder(http.MethodPost, messagesURL, httpmock.NewErrorResponder(errors.New("connection reset")))

		_, err := sender.Send(ctx, sms)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestNewSender_RequiresCredentials(t *testing.T) {
	_, err := twilio.NewSender(twilio.Config{AccountSID: "AC123"}, nil, newTestLogger())
	require.Error(t, err)
}
