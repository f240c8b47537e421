// --- File: notificationservice/notification_service.go ---
package notificationservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-notification-dispatch/internal/api"
	"github.com/tinywideclouds/go-notification-dispatch/internal/pipeline"
	"github.com/tinywideclouds/go-notification-dispatch/notificationservice/config"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/events"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/messaging"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Dependencies are the collaborators the service is assembled from.
type Dependencies struct {
	// Consumer feeds the inbound pipeline. Nil runs the HTTP API only.
	Consumer   messagepipeline.MessageConsumer
	Dispatcher api.Dispatcher
	// Ledger, History and MetricsHandler are optional.
	Ledger         pipeline.DeliveryLedger
	History        api.History
	MetricsHandler http.Handler
	AuthMiddleware func(http.Handler) http.Handler
}

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[notification.Notification]
	logger          *slog.Logger
}

// NewDispatcher assembles the dispatch client from config. Lifecycle events
// always go to the log and then to each extra publisher.
func NewDispatcher(
	cfg *config.Config,
	senders []dispatch.Sender,
	publishers []dispatch.EventPublisher,
	logger *slog.Logger,
) (*messaging.Client, error) {
	opts := []messaging.Option{
		messaging.WithValidation(cfg.ValidationEnabled),
		messaging.WithRetryPolicy(cfg.RetryPolicy()),
		messaging.WithLogger(logger),
	}
	for _, s := range senders {
		opts = append(opts, messaging.WithSender(s))
	}

	all := append([]dispatch.EventPublisher{events.NewLoggingPublisher(logger)}, publishers...)
	opts = append(opts, messaging.WithEventPublisher(events.Combine(all...)))

	return messaging.New(opts...)
}

// New assembles the service.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Wrapper, error) {
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("a dispatcher is required")
	}
	authMiddleware := deps.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = func(h http.Handler) http.Handler { return h }
	}

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Pipeline
	var streamingService *messagepipeline.StreamingService[notification.Notification]
	if deps.Consumer != nil {
		processor := pipeline.NewProcessor(deps.Dispatcher, deps.Ledger, logger)

		var err error
		streamingService, err = messagepipeline.NewStreamingService(
			messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
			deps.Consumer,
			pipeline.NotificationTransformer,
			processor,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create streaming service: %w", err)
		}
	}

	// 3. API
	notificationAPI := api.NewNotificationAPI(deps.Dispatcher, deps.History, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("POST /api/v1/notifications", notificationAPI.Send)
	handle("POST /api/v1/notifications/async", notificationAPI.SendAsync)
	handle("POST /api/v1/notifications/batch", notificationAPI.SendBatch)
	handle("GET /api/v1/notifications/{id}/events", notificationAPI.Events)

	// CORS preflight for the API namespace
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	if deps.MetricsHandler != nil {
		mux.Handle("GET "+cfg.Metrics.Path, deps.MetricsHandler)
	}

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	if w.pipelineService != nil {
		w.logger.Info("Core processing pipeline starting...")
		if err := w.pipelineService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start processing service: %w", err)
		}
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if w.pipelineService != nil {
		if err := w.pipelineService.Stop(ctx); err != nil {
			w.logger.Error("Processing pipeline shutdown failed.", "err", err)
			finalErr = err
		}
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
