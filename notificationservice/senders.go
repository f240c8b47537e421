// --- File: notificationservice/senders.go ---
package notificationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/apns"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/fcm"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/sandbox"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/smtp"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/twilio"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/web"
	"github.com/tinywideclouds/go-notification-dispatch/notificationservice/config"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// FCMClientFactory opens the Firebase messaging client. It is only called
// when the push provider is fcm, so deployments without Firebase never need credentials.
type FCMClientFactory func(ctx context.Context) (fcm.MessagingClient, error)

// BuildSenders creates one sender per configured channel. Channels set to
// "none" are left without a sender and fail with a configuration error at send time.
func BuildSenders(ctx context.Context, cfg *config.Config, fcmFactory FCMClientFactory, logger *slog.Logger) ([]dispatch.Sender, error) {
	var senders []dispatch.Sender

	// 1. Email
	switch cfg.Email.Provider {
	case config.ProviderSMTP:
		s := cfg.Email.SMTP
		sender, err := smtp.NewSender(smtp.Config{
			Host:       s.Host,
			Port:       s.Port,
			Username:   s.Username,
			Password:   s.Password,
			Encryption: s.Encryption,
			FromEmail:  s.FromEmail,
			FromName:   s.FromName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("email sender: %w", err)
		}
		senders = append(senders, sender)
	case config.ProviderSandbox:
		sender, err := sandboxSender(notification.ChannelEmail, cfg.Email.SandboxProvider, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
	}

	// 2. SMS
	switch cfg.SMS.Provider {
	case config.ProviderTwilio:
		t := cfg.SMS.Twilio
		sender, err := twilio.NewSender(twilio.Config{
			AccountSID: t.AccountSID,
			AuthToken:  t.AuthToken,
			FromNumber: t.FromNumber,
		}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("sms sender: %w", err)
		}
		senders = append(senders, sender)
	case config.ProviderSandbox:
		sender, err := sandboxSender(notification.ChannelSMS, cfg.SMS.SandboxProvider, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
	}

	// 3. Push
	switch cfg.Push.Provider {
	case config.ProviderFCM:
		if fcmFactory == nil {
			return nil, errors.New("push sender: fcm selected but no firebase client available")
		}
		client, err := fcmFactory(ctx)
		if err != nil {
			return nil, fmt.Errorf("push sender: %w", err)
		}
		senders = append(senders, fcm.NewSender(client, cfg.Push.FCMIcon, logger))
	case config.ProviderAPNs:
		a := cfg.Push.APNs
		sender, err := apns.NewSender(apns.Config{
			KeyID:        a.KeyID,
			TeamID:       a.TeamID,
			BundleID:     a.BundleID,
			P8KeyContent: a.P8Key,
			Development:  a.Development,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("push sender: %w", err)
		}
		senders = append(senders, sender)
	case config.ProviderWebPush:
		v := cfg.Push.Vapid
		senders = append(senders, web.NewSender(web.Config{
			PublicKey:       v.PublicKey,
			PrivateKey:      v.PrivateKey,
			SubscriberEmail: v.SubscriberEmail,
		}, nil, logger))
	case config.ProviderSandbox:
		sender, err := sandboxSender(notification.ChannelPush, cfg.Push.SandboxProvider, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
	}

	for _, s := range senders {
		logger.Info("Sender configured", "channel", string(s.Channel()), "provider", s.ProviderName())
	}
	return senders, nil
}

func sandboxSender(c notification.Channel, name, projectID string, logger *slog.Logger) (dispatch.Sender, error) {
	sender, ok := sandbox.New(c, name, projectID, logger)
	if !ok {
		return nil, fmt.Errorf("no sandbox provider %q for %s", name, c)
	}
	return sender, nil
}
