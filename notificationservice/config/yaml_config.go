// --- File: notificationservice/config/yaml_config.go ---
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
	TTL      string `yaml:"ttl"`
}

type YamlEventLogConfig struct {
	Enabled bool `yaml:"enabled"`
}

type YamlMetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type YamlRetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	Delay       string  `yaml:"delay"`
	Multiplier  float64 `yaml:"multiplier"`
}

type YamlSMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Encryption string `yaml:"encryption"`
	FromEmail  string `yaml:"from_email"`
	FromName   string `yaml:"from_name"`
}

type YamlEmailConfig struct {
	Provider        string         `yaml:"provider"`
	SandboxProvider string         `yaml:"sandbox_provider"`
	SMTP            YamlSMTPConfig `yaml:"smtp"`
}

type YamlTwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type YamlSMSConfig struct {
	Provider        string           `yaml:"provider"`
	SandboxProvider string           `yaml:"sandbox_provider"`
	Twilio          YamlTwilioConfig `yaml:"twilio"`
}

type YamlAPNsConfig struct {
	KeyID       string `yaml:"key_id"`
	TeamID      string `yaml:"team_id"`
	BundleID    string `yaml:"bundle_id"`
	P8Key       string `yaml:"p8_key"`
	Development bool   `yaml:"development"`
}

type YamlVapidConfig struct {
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`
	SubscriberEmail string `yaml:"subscriber_email"`
}

type YamlPushConfig struct {
	Provider        string          `yaml:"provider"`
	SandboxProvider string          `yaml:"sandbox_provider"`
	FCMIcon         string          `yaml:"fcm_icon"`
	APNs            YamlAPNsConfig  `yaml:"apns"`
	Vapid           YamlVapidConfig `yaml:"vapid"`
}

type YamlProvidersConfig struct {
	Email YamlEmailConfig `yaml:"email"`
	SMS   YamlSMSConfig   `yaml:"sms"`
	Push  YamlPushConfig  `yaml:"push"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID              string              `yaml:"project_id"`
	ListenAddr             string              `yaml:"listen_addr"`
	TopicID                string              `yaml:"topic_id"`
	SubscriptionID         string              `yaml:"subscription_id"`
	SubscriptionDLQTopicID string              `yaml:"subscription_dlq_topic_id"`
	StatusTopicID          string              `yaml:"status_topic_id"`
	NumPipelineWorkers     int                 `yaml:"num_pipeline_workers"`
	ValidationEnabled      *bool               `yaml:"validation_enabled"`
	CorsConfig             YamlCorsConfig      `yaml:"cors"`
	RedisConfig            YamlRedisConfig     `yaml:"redis"`
	EventLogConfig         YamlEventLogConfig  `yaml:"event_log"`
	MetricsConfig          YamlMetricsConfig   `yaml:"metrics"`
	RetryConfig            YamlRetryConfig     `yaml:"retry"`
	Providers              YamlProvidersConfig `yaml:"providers"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	retryDelay, err := parseDuration(baseCfg.RetryConfig.Delay, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid retry.delay: %w", err)
	}
	redisTTL, err := parseDuration(baseCfg.RedisConfig.TTL, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.ttl: %w", err)
	}

	validation := true
	if baseCfg.ValidationEnabled != nil {
		validation = *baseCfg.ValidationEnabled
	}

	p := baseCfg.Providers
	cfg := &Config{
		ProjectID:              baseCfg.ProjectID,
		ListenAddr:             baseCfg.ListenAddr,
		TopicID:                baseCfg.TopicID,
		SubscriptionID:         baseCfg.SubscriptionID,
		SubscriptionDLQTopicID: baseCfg.SubscriptionDLQTopicID,
		StatusTopicID:          baseCfg.StatusTopicID,
		NumPipelineWorkers:     baseCfg.NumPipelineWorkers,
		ValidationEnabled:      validation,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
			TTL:      redisTTL,
		},
		EventLog: EventLogConfig{Enabled: baseCfg.EventLogConfig.Enabled},
		Metrics: MetricsConfig{
			Enabled: baseCfg.MetricsConfig.Enabled,
			Path:    baseCfg.MetricsConfig.Path,
		},
		Retry: RetryConfig{
			MaxAttempts: baseCfg.RetryConfig.MaxAttempts,
			Delay:       retryDelay,
			Multiplier:  baseCfg.RetryConfig.Multiplier,
		},
		Email: EmailConfig{
			Provider:        p.Email.Provider,
			SandboxProvider: p.Email.SandboxProvider,
			SMTP: SMTPConfig{
				Host:       p.Email.SMTP.Host,
				Port:       p.Email.SMTP.Port,
				Username:   p.Email.SMTP.Username,
				Password:   p.Email.SMTP.Password,
				Encryption: p.Email.SMTP.Encryption,
				FromEmail:  p.Email.SMTP.FromEmail,
				FromName:   p.Email.SMTP.FromName,
			},
		},
		SMS: SMSConfig{
			Provider:        p.SMS.Provider,
			SandboxProvider: p.SMS.SandboxProvider,
			Twilio: TwilioConfig{
				AccountSID: p.SMS.Twilio.AccountSID,
				AuthToken:  p.SMS.Twilio.AuthToken,
				FromNumber: p.SMS.Twilio.FromNumber,
			},
		},
		Push: PushConfig{
			Provider:        p.Push.Provider,
			SandboxProvider: p.Push.SandboxProvider,
			FCMIcon:         p.Push.FCMIcon,
			APNs: APNsConfig{
				KeyID:       p.Push.APNs.KeyID,
				TeamID:      p.Push.APNs.TeamID,
				BundleID:    p.Push.APNs.BundleID,
				P8Key:       p.Push.APNs.P8Key,
				Development: p.Push.APNs.Development,
			},
			Vapid: VapidConfig{
				PublicKey:       p.Push.Vapid.PublicKey,
				PrivateKey:      p.Push.Vapid.PrivateKey,
				SubscriberEmail: p.Push.Vapid.SubscriberEmail,
			},
		},
	}

	if cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
		"email_provider", cfg.Email.Provider,
		"sms_provider", cfg.SMS.Provider,
		"push_provider", cfg.Push.Provider,
	)

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
