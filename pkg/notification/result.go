package notification

import "time"

// Status is the terminal outcome of a delivery.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Result describes the outcome of a single send attempt or of a whole dispatch.
type Result struct {
	NotificationID    string    `json:"notificationId"`
	Status            Status    `json:"status"`
	ProviderName      string    `json:"providerName,omitempty"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Succeeded builds a SUCCESS result.
func Succeeded(notificationID, provider, providerMessageID string, at time.Time) *Result {
	return &Result{
		NotificationID:    notificationID,
		Status:            StatusSuccess,
		ProviderName:      provider,
		ProviderMessageID: providerMessageID,
		Timestamp:         at,
	}
}

// Failed builds a FAILED result carrying the provider's error message.
func Failed(notificationID, provider, errorMessage string, at time.Time) *Result {
	return &Result{
		NotificationID: notificationID,
		Status:         StatusFailed,
		ProviderName:   provider,
		ErrorMessage:   errorMessage,
		Timestamp:      at,
	}
}
