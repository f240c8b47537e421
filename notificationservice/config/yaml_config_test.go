// --- File: notificationservice/config/yaml_config_test.go ---
package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-notification-dispatch/notificationservice/config"
)

func TestNewConfigFromYaml(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - maps all fields correctly", func(t *testing.T) {
		disabled := false
		yamlCfg := &config.YamlConfig{
			ProjectID:              "yaml-project",
			ListenAddr:             ":9000",
			TopicID:                "yaml-topic",
			SubscriptionID:         "yaml-subscription",
			SubscriptionDLQTopicID: "yaml-dlq",
			StatusTopicID:          "yaml-status",
			NumPipelineWorkers:     5,
			ValidationEnabled:      &disabled,
			CorsConfig: config.YamlCorsConfig{
				AllowedOrigins: []string{"http://yaml.com"},
				Role:           "editor",
			},
			RedisConfig: config.YamlRedisConfig{Enabled: true, Addr: "redis:6379", TTL: "2h"},
			RetryConfig: config.YamlRetryConfig{MaxAttempts: 4, Delay: "250ms", Multiplier: 2},
			Providers: config.YamlProvidersConfig{
				Email: config.YamlEmailConfig{
					Provider: "smtp",
					SMTP:     config.YamlSMTPConfig{Host: "mail.example.com", Port: 587, FromEmail: "noreply@example.com"},
				},
				Push: config.YamlPushConfig{
					Provider: "webpush",
					Vapid: config.YamlVapidConfig{
						PublicKey:       "yaml-public-key",
						PrivateKey:      "yaml-private-key",
						SubscriberEmail: "yaml@test.com",
					},
				},
			},
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		// 1. Direct Field Mapping
		assert.Equal(t, "yaml-project", cfg.ProjectID)
		assert.Equal(t, ":9000", cfg.ListenAddr)
		assert.Equal(t, "yaml-topic", cfg.TopicID)
		assert.Equal(t, "yaml-subscription", cfg.SubscriptionID)
		assert.Equal(t, "yaml-dlq", cfg.SubscriptionDLQTopicID)
		assert.Equal(t, "yaml-status", cfg.StatusTopicID)
		assert.Equal(t, 5, cfg.NumPipelineWorkers)
		assert.False(t, cfg.ValidationEnabled)

		// 2. Complex Logic: CORS
		assert.Equal(t, []string{"http://yaml.com"}, cfg.CorsConfig.AllowedOrigins)
		assert.Equal(t, middleware.CorsRoleEditor, cfg.CorsConfig.Role)

		// 3. Durations
		assert.Equal(t, 2*time.Hour, cfg.Redis.TTL)
		assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)

		// 4. Providers
		assert.Equal(t, "smtp", cfg.Email.Provider)
		assert.Equal(t, 587, cfg.Email.SMTP.Port)
		assert.Equal(t, "yaml-public-key", cfg.Push.Vapid.PublicKey)
		assert.Equal(t, "yaml@test.com", cfg.Push.Vapid.SubscriberEmail)

		assert.NotNil(t, cfg.PubsubConsumerConfig)
	})

	t.Run("Success - Handles missing optional fields gracefully", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			ProjectID:      "minimal-project",
			SubscriptionID: "minimal-sub",
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, "minimal-project", cfg.ProjectID)
		assert.Equal(t, 0, cfg.NumPipelineWorkers)
		assert.Empty(t, cfg.ListenAddr)
		assert.True(t, cfg.ValidationEnabled)
		assert.Empty(t, cfg.Push.Vapid.PublicKey)
	})

	t.Run("Failure - bad duration", func(t *testing.T) {
		_, err := config.NewConfigFromYaml(&config.YamlConfig{RetryConfig: config.YamlRetryConfig{Delay: "soon"}}, logger)
		assert.Error(t, err)
	})

	t.Run("Success - decodes raw yaml", func(t *testing.T) {
		raw := []byte(`
project_id: raw-project
subscription_id: raw-sub
retry:
  max_attempts: 3
  delay: 1s
  multiplier: 2.0
providers:
  sms:
    provider: sandbox
    sandbox_provider: nexmo
`)
		var yamlCfg config.YamlConfig
		require.NoError(t, yaml.Unmarshal(raw, &yamlCfg))

		cfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.Equal(t, time.Second, cfg.Retry.Delay)
		assert.Equal(t, "nexmo", cfg.SMS.SandboxProvider)
	})
}
