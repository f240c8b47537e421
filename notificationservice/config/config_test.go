// --- File: notificationservice/config/config_test.go ---
package config_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notification-dispatch/notificationservice/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	logger := newTestLogger()

	baseConfig := func() *config.Config {
		return &config.Config{
			ProjectID:          "base-project",
			ListenAddr:         ":8080",
			SubscriptionID:     "base-sub",
			NumPipelineWorkers: 2,
			ValidationEnabled:  true,
			Push: config.PushConfig{
				Vapid: config.VapidConfig{
					PublicKey:  "base-pub",
					PrivateKey: "base-priv",
				},
			},
		}
	}

	t.Run("Success - All overrides applied", func(t *testing.T) {
		cfg := baseConfig()

		t.Setenv("PROJECT_ID", "env-project")
		t.Setenv("PORT", "9090")
		t.Setenv("SUBSCRIPTION_ID", "env-sub")
		t.Setenv("STATUS_TOPIC_ID", "env-status")
		t.Setenv("VALIDATION_ENABLED", "false")
		t.Setenv("RETRY_MAX_ATTEMPTS", "5")
		t.Setenv("RETRY_DELAY", "200ms")
		t.Setenv("RETRY_MULTIPLIER", "1.5")
		t.Setenv("VAPID_PUBLIC_KEY", "env-pub")
		t.Setenv("VAPID_PRIVATE_KEY", "env-priv")
		t.Setenv("VAPID_SUB_EMAIL", "env@test.com")
		t.Setenv("PUSH_PROVIDER", "WebPush")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.com, ,http://b.com")

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, "env-project", finalCfg.ProjectID)
		assert.Equal(t, ":9090", finalCfg.ListenAddr)
		assert.Equal(t, "env-sub", finalCfg.SubscriptionID)
		assert.Equal(t, "env-status", finalCfg.StatusTopicID)
		assert.False(t, finalCfg.ValidationEnabled)
		assert.Equal(t, []string{"http://a.com", "http://b.com"}, finalCfg.CorsConfig.AllowedOrigins)

		assert.Equal(t, "webpush", finalCfg.Push.Provider)
		assert.Equal(t, "env-pub", finalCfg.Push.Vapid.PublicKey)
		assert.Equal(t, "env-priv", finalCfg.Push.Vapid.PrivateKey)
		assert.Equal(t, "env@test.com", finalCfg.Push.Vapid.SubscriberEmail)

		policy := finalCfg.RetryPolicy()
		assert.Equal(t, 5, policy.MaxAttempts())
		assert.Equal(t, 200*time.Millisecond, policy.DelayForAttempt(1))
		assert.Equal(t, 300*time.Millisecond, policy.DelayForAttempt(2))
	})

	t.Run("Success - Defaults applied", func(t *testing.T) {
		cfg := baseConfig()
		cfg.ListenAddr = ""
		cfg.NumPipelineWorkers = 0

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, "base-project", finalCfg.ProjectID)
		assert.Equal(t, ":8080", finalCfg.ListenAddr)
		assert.Equal(t, 1, finalCfg.NumPipelineWorkers)
		assert.Equal(t, config.ProviderSandbox, finalCfg.Email.Provider)
		assert.Equal(t, config.ProviderSandbox, finalCfg.SMS.Provider)
		assert.Equal(t, config.ProviderSandbox, finalCfg.Push.Provider)
		assert.Equal(t, 24*time.Hour, finalCfg.Redis.TTL)
		assert.Equal(t, "/metrics", finalCfg.Metrics.Path)
		assert.Equal(t, 1, finalCfg.RetryPolicy().MaxAttempts())
		assert.NotNil(t, finalCfg.PubsubConsumerConfig)
	})

	t.Run("Validation Failure - Missing ProjectID", func(t *testing.T) {
		cfg := &config.Config{SubscriptionID: "sub"}
		t.Setenv("PROJECT_ID", "")
		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
	})

	t.Run("Validation Failure - Provider credentials", func(t *testing.T) {
		testCases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"smtp without host", func(c *config.Config) { c.Email.Provider = "smtp" }},
			{"twilio without token", func(c *config.Config) {
				c.SMS.Provider = "twilio"
				c.SMS.Twilio = config.TwilioConfig{AccountSID: "AC1", FromNumber: "+15550000000"}
			}},
			{"apns without key", func(c *config.Config) { c.Push.Provider = "apns" }},
			{"unknown push provider", func(c *config.Config) { c.Push.Provider = "pigeon" }},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				cfg := baseConfig()
				tc.mutate(cfg)
				_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
				assert.Error(t, err)
			})
		}
	})

	t.Run("Validation Failure - Bad RETRY_DELAY", func(t *testing.T) {
		t.Setenv("RETRY_DELAY", "later")
		_, err := config.UpdateConfigWithEnvOverrides(baseConfig(), logger)
		assert.Error(t, err)
	})
}
