package notification

import "time"

// EventType marks a point in the delivery lifecycle.
type EventType string

const (
	EventSending  EventType = "SENDING"
	EventRetrying EventType = "RETRYING"
	EventSuccess  EventType = "SUCCESS"
	EventFailed   EventType = "FAILED"
)

// Terminal reports whether no further events follow this one.
func (t EventType) Terminal() bool {
	return t == EventSuccess || t == EventFailed
}

// Event is a lifecycle record emitted during a dispatch.
type Event struct {
	Type              EventType `json:"eventType" firestore:"eventType"`
	NotificationID    string    `json:"notificationId" firestore:"notificationId"`
	NotificationType  Channel   `json:"notificationType" firestore:"notificationType"`
	AttemptNumber     int       `json:"attemptNumber" firestore:"attemptNumber"`
	ErrorMessage      string    `json:"errorMessage,omitempty" firestore:"errorMessage,omitempty"`
	ProviderName      string    `json:"providerName,omitempty" firestore:"providerName,omitempty"`
	ProviderMessageID string    `json:"providerMessageId,omitempty" firestore:"providerMessageId,omitempty"`
	Timestamp         time.Time `json:"timestamp" firestore:"timestamp"`
}
