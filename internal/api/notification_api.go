// Package api exposes the dispatch service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	fs "github.com/tinywideclouds/go-notification-dispatch/internal/storage/firestore"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// MaxBatchSize bounds a single batch request.
const MaxBatchSize = 100

// Dispatcher is the subset of dispatch.Service used by the API.
type Dispatcher interface {
	Send(ctx context.Context, n notification.Notification) (notification.Result, error)
	SendAsync(ctx context.Context, n notification.Notification) *dispatch.Future
	SendBatch(ctx context.Context, ns []notification.Notification) []dispatch.Outcome
}

// History lists the recorded events of a notification.
type History interface {
	Events(ctx context.Context, notificationID string) ([]notification.Event, error)
}

type NotificationAPI struct {
	Dispatcher Dispatcher
	// History is optional; without it the events endpoint answers 501.
	History History
	NewID   func() string
	Logger  *slog.Logger
}

func NewNotificationAPI(dispatcher Dispatcher, history History, logger *slog.Logger) *NotificationAPI {
	return &NotificationAPI{
		Dispatcher: dispatcher,
		History:    history,
		NewID:      uuid.NewString,
		Logger:     logger.With("component", "NotificationAPI"),
	}
}

// AcceptedResponse is returned by the async endpoint.
type AcceptedResponse struct {
	NotificationID string `json:"notificationId"`
}

// BatchRequest wraps several requests in one call.
type BatchRequest struct {
	Notifications []notification.Request `json:"notifications"`
}

// BatchEntry is one line of a batch response, in request order.
type BatchEntry struct {
	NotificationID string               `json:"notificationId,omitempty"`
	Result         *notification.Result `json:"result,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// --- Sync ---

func (api *NotificationAPI) Send(w http.ResponseWriter, r *http.Request) {
	n, ok := api.decode(w, r)
	if !ok {
		return
	}

	res, err := api.Dispatcher.Send(r.Context(), n)
	if err != nil {
		api.writeDispatchError(w, n, err)
		return
	}

	status := http.StatusOK
	if !res.IsSuccess() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// --- Async ---

func (api *NotificationAPI) SendAsync(w http.ResponseWriter, r *http.Request) {
	n, ok := api.decode(w, r)
	if !ok {
		return
	}

	future := api.Dispatcher.SendAsync(r.Context(), n)
	go func() {
		if res, err := future.Wait(context.Background()); err != nil {
			api.Logger.Warn("Async dispatch rejected", "notification_id", n.ID, "err", err)
		} else if !res.IsSuccess() {
			api.Logger.Warn("Async dispatch failed", "notification_id", n.ID, "err", res.ErrorMessage)
		}
	}()

	writeJSON(w, http.StatusAccepted, AcceptedResponse{NotificationID: n.ID})
}

// --- Batch ---

func (api *NotificationAPI) SendBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Notifications) == 0 {
		response.WriteJSONError(w, http.StatusBadRequest, "empty batch")
		return
	}
	if len(req.Notifications) > MaxBatchSize {
		response.WriteJSONError(w, http.StatusRequestEntityTooLarge, "batch too large")
		return
	}

	entries := make([]BatchEntry, len(req.Notifications))
	valid := make([]notification.Notification, 0, len(req.Notifications))
	slots := make([]int, 0, len(req.Notifications))

	for i, raw := range req.Notifications {
		n, err := raw.ToNotification(api.NewID)
		if err != nil {
			entries[i] = BatchEntry{NotificationID: raw.ID, Error: err.Error()}
			continue
		}
		api.stampCaller(r.Context(), &n)
		valid = append(valid, n)
		slots = append(slots, i)
	}

	for j, out := range api.Dispatcher.SendBatch(r.Context(), valid) {
		entry := BatchEntry{NotificationID: out.Notification.ID}
		if out.Err != nil {
			entry.Error = out.Err.Error()
		} else {
			res := out.Result
			entry.Result = &res
		}
		entries[slots[j]] = entry
	}

	writeJSON(w, http.StatusOK, entries)
}

// --- History ---

func (api *NotificationAPI) Events(w http.ResponseWriter, r *http.Request) {
	if api.History == nil {
		response.WriteJSONError(w, http.StatusNotImplemented, "event history is not enabled")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing notification id")
		return
	}

	events, err := api.History.Events(r.Context(), id)
	if errors.Is(err, fs.ErrNotFound) {
		response.WriteJSONError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		api.Logger.Error("Failed to read event history", "notification_id", id, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// --- Helpers ---

func (api *NotificationAPI) decode(w http.ResponseWriter, r *http.Request) (notification.Notification, bool) {
	var req notification.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return notification.Notification{}, false
	}

	n, err := req.ToNotification(api.NewID)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return notification.Notification{}, false
	}
	api.stampCaller(r.Context(), &n)
	return n, true
}

// stampCaller records the authenticated caller, when there is one.
func (api *NotificationAPI) stampCaller(ctx context.Context, n *notification.Notification) {
	if userID, ok := middleware.GetUserHandleFromContext(ctx); ok {
		n.Metadata["submittedBy"] = userID
	}
}

func (api *NotificationAPI) writeDispatchError(w http.ResponseWriter, n notification.Notification, err error) {
	switch {
	case dispatch.IsValidationError(err):
		response.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case dispatch.IsConfigurationError(err):
		api.Logger.Error("No sender for channel", "notification_id", n.ID, "channel", string(n.Channel), "err", err)
		response.WriteJSONError(w, http.StatusNotImplemented, err.Error())
	default:
		api.Logger.Error("Dispatch failed", "notification_id", n.ID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "dispatch failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
