// --- File: notificationservice/config/config.go ---
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
)

// Provider names accepted in the providers section.
const (
	ProviderNone    = "none"
	ProviderSandbox = "sandbox"
	ProviderSMTP    = "smtp"
	ProviderTwilio  = "twilio"
	ProviderFCM     = "fcm"
	ProviderAPNs    = "apns"
	ProviderWebPush = "webpush"
)

const (
	defaultRedisTTL    = 24 * time.Hour
	defaultMetricsPath = "/metrics"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// TTL bounds how long delivered ids and settled histories are cached.
	TTL time.Duration
}

type EventLogConfig struct {
	Enabled bool
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string
	FromEmail  string
	FromName   string
}

type EmailConfig struct {
	Provider        string
	SandboxProvider string
	SMTP            SMTPConfig
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type SMSConfig struct {
	Provider        string
	SandboxProvider string
	Twilio          TwilioConfig
}

type APNsConfig struct {
	KeyID       string
	TeamID      string
	BundleID    string
	P8Key       string
	Development bool
}

type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type PushConfig struct {
	Provider        string
	SandboxProvider string
	FCMIcon         string
	APNs            APNsConfig
	Vapid           VapidConfig
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID              string
	ListenAddr             string
	SubscriptionID         string
	SubscriptionDLQTopicID string
	NumPipelineWorkers     int

	// StatusTopicID enables lifecycle events on Pub/Sub when set.
	StatusTopicID     string
	ValidationEnabled bool

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	EventLog   EventLogConfig
	Metrics    MetricsConfig
	Retry      RetryConfig

	Email EmailConfig
	SMS   SMSConfig
	Push  PushConfig

	TopicID              string
	PubsubConsumerConfig *messagepipeline.GooglePubsubConsumerConfig
}

// RetryPolicy builds the dispatch retry policy from the retry section.
func (c *Config) RetryPolicy() dispatch.RetryPolicy {
	return dispatch.WithBackoff(c.Retry.MaxAttempts, c.Retry.Delay, c.Retry.Multiplier)
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. Apply Environment Overrides
	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("SUBSCRIPTION_DLQ_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_DLQ_TOPIC_ID", "source", "env")
		cfg.SubscriptionDLQTopicID = val
	}
	if val := os.Getenv("STATUS_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "STATUS_TOPIC_ID", "source", "env")
		cfg.StatusTopicID = val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "NUM_PIPELINE_WORKERS", "source", "env")
			cfg.NumPipelineWorkers = workers
		}
	}
	if val := os.Getenv("VALIDATION_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.ValidationEnabled = enabled
		}
	}

	// Retry Overrides
	if val := os.Getenv("RETRY_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	if val := os.Getenv("RETRY_DELAY"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("RETRY_DELAY: %w", err)
		}
		cfg.Retry.Delay = d
	}
	if val := os.Getenv("RETRY_MULTIPLIER"); val != "" {
		if m, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Retry.Multiplier = m
		}
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// Provider Overrides
	if val := os.Getenv("EMAIL_PROVIDER"); val != "" {
		cfg.Email.Provider = val
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		cfg.Email.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_USERNAME"); val != "" {
		cfg.Email.SMTP.Username = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		cfg.Email.SMTP.Password = val
	}
	if val := os.Getenv("SMS_PROVIDER"); val != "" {
		cfg.SMS.Provider = val
	}
	if val := os.Getenv("TWILIO_ACCOUNT_SID"); val != "" {
		cfg.SMS.Twilio.AccountSID = val
	}
	if val := os.Getenv("TWILIO_AUTH_TOKEN"); val != "" {
		logger.Debug("Overriding config value", "key", "TWILIO_AUTH_TOKEN", "source", "env")
		cfg.SMS.Twilio.AuthToken = val
	}
	if val := os.Getenv("PUSH_PROVIDER"); val != "" {
		cfg.Push.Provider = val
	}
	if val := os.Getenv("APNS_P8_KEY"); val != "" {
		cfg.Push.APNs.P8Key = val
	}

	// VAPID Overrides
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PUBLIC_KEY", "source", "env")
		cfg.Push.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PRIVATE_KEY", "source", "env")
		cfg.Push.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_SUB_EMAIL"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_SUB_EMAIL", "source", "env")
		cfg.Push.Vapid.SubscriberEmail = val
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// 2. Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription_id is required (set via YAML or SUBSCRIPTION_ID env var)")
	}
	if err := validateProviders(cfg); err != nil {
		return nil, err
	}

	// 3. Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Retry.Delay <= 0 {
		cfg.Retry.Delay = dispatch.DefaultRetryDelay
	}
	if cfg.Retry.Multiplier <= 0 {
		cfg.Retry.Multiplier = 1.0
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = defaultRedisTTL
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}

	if cfg.PubsubConsumerConfig == nil && cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

// validateProviders normalizes provider names and checks their credentials.
// An empty provider means sandbox.
func validateProviders(cfg *Config) error {
	cfg.Email.Provider = normalizeProvider(cfg.Email.Provider)
	cfg.SMS.Provider = normalizeProvider(cfg.SMS.Provider)
	cfg.Push.Provider = normalizeProvider(cfg.Push.Provider)

	switch cfg.Email.Provider {
	case ProviderNone, ProviderSandbox:
	case ProviderSMTP:
		if cfg.Email.SMTP.Host == "" || cfg.Email.SMTP.FromEmail == "" {
			return fmt.Errorf("providers.email.smtp requires host and from_email")
		}
	default:
		return fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}

	switch cfg.SMS.Provider {
	case ProviderNone, ProviderSandbox:
	case ProviderTwilio:
		t := cfg.SMS.Twilio
		if t.AccountSID == "" || t.AuthToken == "" || t.FromNumber == "" {
			return fmt.Errorf("providers.sms.twilio requires account_sid, auth_token and from_number")
		}
	default:
		return fmt.Errorf("unknown sms provider %q", cfg.SMS.Provider)
	}

	switch cfg.Push.Provider {
	case ProviderNone, ProviderSandbox, ProviderFCM:
	case ProviderAPNs:
		a := cfg.Push.APNs
		if a.KeyID == "" || a.TeamID == "" || a.BundleID == "" || a.P8Key == "" {
			return fmt.Errorf("providers.push.apns requires key_id, team_id, bundle_id and p8_key")
		}
	case ProviderWebPush:
		if cfg.Push.Vapid.PublicKey == "" || cfg.Push.Vapid.PrivateKey == "" {
			return fmt.Errorf("providers.push.vapid requires public_key and private_key")
		}
	default:
		return fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
	}
	return nil
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return ProviderSandbox
	}
	return p
}
