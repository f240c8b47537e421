// --- File: cmd/notificationdispatch/main.go ---
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	firebase "firebase.google.com/go/v4"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-notification-dispatch/internal/metrics"
	"github.com/tinywideclouds/go-notification-dispatch/internal/platform/fcm"
	statuspub "github.com/tinywideclouds/go-notification-dispatch/internal/platform/pubsub"
	"github.com/tinywideclouds/go-notification-dispatch/internal/storage/cache"
	fsStore "github.com/tinywideclouds/go-notification-dispatch/internal/storage/firestore"
	"github.com/tinywideclouds/go-notification-dispatch/notificationservice"
	"github.com/tinywideclouds/go-notification-dispatch/notificationservice/config"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-notification-dispatch")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config mapping failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer psClient.Close()

	var publishers []dispatch.EventPublisher
	deps := notificationservice.Dependencies{}

	// --- Event Log (Firestore, optionally cached) ---
	if cfg.EventLog.Enabled {
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore client failed", "err", err)
			os.Exit(1)
		}
		defer fsClient.Close()

		var history cache.HistoryStore = fsStore.NewEventStore(fsClient)
		logger.Info("Event log initialized", "type", "firestore")

		if cfg.Redis.Enabled {
			logger.Info("Initializing Redis Cache layer...", "addr", cfg.Redis.Addr)
			redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				logger.Error("Failed to connect to Redis", "err", err)
				os.Exit(1)
			}
			defer redisClient.Close()
			history = cache.NewCachedHistory(history, redisClient, cfg.Redis.TTL)
			deps.Ledger = cache.NewDeliveryCache(redisClient, cfg.Redis.TTL)
			logger.Info("Event log upgraded", "type", "redis_cached_firestore")
		}
		publishers = append(publishers, history)
		deps.History = history
	} else if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		deps.Ledger = cache.NewDeliveryCache(redisClient, cfg.Redis.TTL)
	}

	// --- Status Topic ---
	if cfg.StatusTopicID != "" {
		statusPublisher := statuspub.NewEventPublisher(psClient, cfg.StatusTopicID, logger)
		defer statusPublisher.Stop()
		publishers = append(publishers, statusPublisher)
	}

	// --- Metrics ---
	if cfg.Metrics.Enabled {
		dispatchMetrics, err := metrics.NewDispatchMetrics(prometheus.NewRegistry())
		if err != nil {
			logger.Error("Failed to register metrics", "err", err)
			os.Exit(1)
		}
		publishers = append(publishers, dispatchMetrics)
		deps.MetricsHandler = dispatchMetrics.Handler()
	}

	// --- Auth ---
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		identityURL = "http://localhost:3000"
	}
	jwksURL, err := middleware.DiscoverAndValidateJWTConfig(identityURL, middleware.RSA256, logger)
	if err != nil {
		logger.Warn("JWT discovery failed, API runs unauthenticated", "err", err)
	} else if authMiddleware, err := middleware.NewJWKSAuthMiddleware(jwksURL, logger); err == nil {
		deps.AuthMiddleware = authMiddleware
	} else {
		logger.Warn("JWKS middleware unavailable, API runs unauthenticated", "err", err)
	}

	// --- Senders ---
	senders, err := notificationservice.BuildSenders(ctx, cfg, firebaseMessaging(cfg.ProjectID), logger)
	if err != nil {
		logger.Error("Sender setup failed", "err", err)
		os.Exit(1)
	}

	client, err := notificationservice.NewDispatcher(cfg, senders, publishers, logger)
	if err != nil {
		logger.Error("Dispatcher setup failed", "err", err)
		os.Exit(1)
	}
	deps.Dispatcher = client

	// --- Consumer & Service ---
	consumer, err := newIngestionConsumer(ctx, cfg, psClient, logger)
	if err != nil {
		logger.Error("Consumer setup failed", "err", err)
		os.Exit(1)
	}
	deps.Consumer = consumer

	service, err := notificationservice.New(cfg, deps, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = service.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}

func firebaseMessaging(projectID string) notificationservice.FCMClientFactory {
	return func(ctx context.Context) (fcm.MessagingClient, error) {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase App: %w", err)
		}
		return app.Messaging(ctx)
	}
}

func newIngestionConsumer(ctx context.Context, cfg *config.Config, psClient *pubsub.Client, logger *slog.Logger) (messagepipeline.MessageConsumer, error) {
	sub := convertPubsub(cfg.ProjectID, cfg.PubsubConsumerConfig.SubscriptionID, "subscriptions")
	topicID := convertPubsub(cfg.ProjectID, cfg.TopicID, "topics")

	subConfig := &pubsubpb.Subscription{
		Name:               sub,
		Topic:              topicID,
		AckDeadlineSeconds: 10,
	}
	if cfg.SubscriptionDLQTopicID != "" {
		subConfig.DeadLetterPolicy = &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     convertPubsub(cfg.ProjectID, cfg.SubscriptionDLQTopicID, "topics"),
			MaxDeliveryAttempts: 5,
		}
	}
	logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
		} else {
			logger.Error("Failed to create subscription", "sub", subConfig.Name, "err", err)
			return nil, fmt.Errorf("could not create sub: %s", sub)
		}
	}

	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(subConfig.Name), psClient, logger,
	)
}

type PS string

func convertPubsub(project, id string, ps PS) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, ps, id)
}
