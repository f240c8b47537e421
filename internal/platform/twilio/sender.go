// Package twilio delivers SMS notifications through the Twilio Messages API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	twiliogo "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const providerName = "Twilio"

// Config holds the account credentials and default sender number.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

// MessageCreator is the subset of the Twilio API service we use.
type MessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

type Sender struct {
	api        MessageCreator
	accountSID string
	fromNumber string
	now        func() time.Time
	logger     *slog.Logger
}

// NewSender builds a REST client for the account. A nil httpClient gets one
// with cfg.Timeout (default 10s).
func NewSender(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	restClient := &client.Client{
		Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	restClient.SetAccountSid(cfg.AccountSID)

	rc := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username:   cfg.AccountSID,
		Password:   cfg.AuthToken,
		AccountSid: cfg.AccountSID,
		Client:     restClient,
	})

	return NewSenderWithAPI(rc.Api, cfg.AccountSID, cfg.FromNumber, logger), nil
}

// NewSenderWithAPI wires an existing message API, e.g. a subaccount client.
func NewSenderWithAPI(api MessageCreator, accountSID, fromNumber string, logger *slog.Logger) *Sender {
	return &Sender{
		api:        api,
		accountSID: accountSID,
		fromNumber: fromNumber,
		now:        time.Now,
		logger:     logger.With("component", "TwilioSender"),
	}
}

func (s *Sender) ProviderName() string          { return providerName }
func (s *Sender) Channel() notification.Channel { return notification.ChannelSMS }

// Send creates a Message resource. A 4xx other than 429 is a FAILED result,
// anything else that goes wrong is returned as an error.
func (s *Sender) Send(ctx context.Context, n notification.Notification) (*notification.Result, error) {
	// The REST client takes no context; a done ctx still stops us before the request.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("twilio send aborted: %w", err)
	}

	from := s.fromNumber
	if n.SMS != nil && n.SMS.FromNumber != "" {
		from = n.SMS.FromNumber
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetPathAccountSid(s.accountSID)
	params.SetTo(n.Recipient.PhoneNumber)
	params.SetFrom(from)
	params.SetBody(n.Body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && isPermanent(restErr.Status) {
			reason := fmt.Sprintf("twilio error %d: %s", restErr.Code, restErr.Message)
			s.logger.Warn("Twilio rejected SMS", "notification_id", n.ID, "status", restErr.Status, "reason", reason)
			return notification.Failed(n.ID, providerName, reason, s.now()), nil
		}
		return nil, fmt.Errorf("twilio send failed: %w", err)
	}

	var sid string
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	s.logger.Debug("SMS accepted", "notification_id", n.ID, "sid", sid)
	return notification.Succeeded(n.ID, providerName, sid, s.now()), nil
}

func isPermanent(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
