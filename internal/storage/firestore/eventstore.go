// Package firestore keeps the delivery history of every dispatched notification.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

const notificationsCollection = "notifications"

// ErrNotFound is returned when no history exists for a notification.
var ErrNotFound = errors.New("notification not found")

// EventStore records lifecycle events in Firestore. It satisfies
// dispatch.EventPublisher so it can sit directly in the publisher fan-out.
type EventStore struct {
	client *firestore.Client
}

func NewEventStore(client *firestore.Client) *EventStore {
	return &EventStore{client: client}
}

// Summary is the per-notification document that tracks the latest state.
type Summary struct {
	NotificationID   string                 `firestore:"notificationId" json:"notificationId"`
	NotificationType notification.Channel   `firestore:"notificationType" json:"notificationType"`
	LastEvent        notification.EventType `firestore:"lastEvent" json:"lastEvent"`
	Attempts         int                    `firestore:"attempts" json:"attempts"`
	ProviderName     string                 `firestore:"providerName,omitempty" json:"providerName,omitempty"`
	UpdatedAt        time.Time              `firestore:"updatedAt" json:"updatedAt"`
}

// Publish writes the event and updates the summary in one transaction.
// notifications/{id}/events/{attempt}-{rank}-{type}
func (s *EventStore) Publish(ctx context.Context, e notification.Event) error {
	if e.NotificationID == "" {
		return errors.New("event has no notification id")
	}

	parent := s.client.Collection(notificationsCollection).Doc(e.NotificationID)

	summary := map[string]interface{}{
		"notificationId":   e.NotificationID,
		"notificationType": string(e.NotificationType),
		"lastEvent":        string(e.Type),
		"attempts":         e.AttemptNumber,
		"updatedAt":        e.Timestamp,
	}
	if e.ProviderName != "" {
		summary["providerName"] = e.ProviderName
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(parent.Collection("events").Doc(eventDocID(e)), e); err != nil {
			return err
		}
		return tx.Set(parent, summary, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("failed to record %s event for %s: %w", e.Type, e.NotificationID, err)
	}
	return nil
}

// Events returns the history of a notification in emission order.
func (s *EventStore) Events(ctx context.Context, notificationID string) ([]notification.Event, error) {
	iter := s.client.Collection(notificationsCollection).Doc(notificationID).
		Collection("events").
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	events := make([]notification.Event, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var e notification.Event
		if err := doc.DataTo(&e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

// Summary returns the latest known state of a notification.
func (s *EventStore) Summary(ctx context.Context, notificationID string) (*Summary, error) {
	doc, err := s.client.Collection(notificationsCollection).Doc(notificationID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var summary Summary
	if err := doc.DataTo(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// eventDocID sorts lexically in emission order. RETRYING carries the number of
// the attempt it announces, so it sorts before that attempt's terminal event.
func eventDocID(e notification.Event) string {
	var rank int
	switch e.Type {
	case notification.EventSending:
		rank = 0
	case notification.EventRetrying:
		rank = 1
	default:
		rank = 2
	}
	return fmt.Sprintf("%04d-%d-%s", e.AttemptNumber, rank, e.Type)
}
