package dispatch

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
)

// MinDeviceTokenLength is the shortest device token accepted for push.
const MinDeviceTokenLength = 10

// EmailValidator requires a well-formed address, a subject and a body.
type EmailValidator struct{}

func (EmailValidator) Validate(n notification.Notification) error {
	if !emailPattern.MatchString(n.Recipient.Email) {
		return NewValidationError(n.Channel, "Invalid email address")
	}
	if isBlank(n.Subject()) {
		return NewValidationError(n.Channel, "Email subject is required")
	}
	if isBlank(n.Body) {
		return NewValidationError(n.Channel, "Email body is required")
	}
	return nil
}

// PhoneValidator requires an E.164-like phone number and a body.
type PhoneValidator struct{}

func (PhoneValidator) Validate(n notification.Notification) error {
	if !phonePattern.MatchString(n.Recipient.PhoneNumber) {
		return NewValidationError(n.Channel, "Invalid phone number")
	}
	if isBlank(n.Body) {
		return NewValidationError(n.Channel, "SMS body is required")
	}
	return nil
}

// PushTokenValidator requires a plausible device token, a title and a body.
type PushTokenValidator struct{}

func (PushTokenValidator) Validate(n notification.Notification) error {
	if utf8.RuneCountInString(n.Recipient.DeviceToken) < MinDeviceTokenLength {
		return NewValidationError(n.Channel, "Invalid device token")
	}
	if isBlank(n.Title()) {
		return NewValidationError(n.Channel, "Push notification title is required")
	}
	if isBlank(n.Body) {
		return NewValidationError(n.Channel, "Push notification body is required")
	}
	return nil
}

// DefaultValidators returns the built-in validator for every channel.
func DefaultValidators() map[notification.Channel]Validator {
	return map[notification.Channel]Validator{
		notification.ChannelEmail: EmailValidator{},
		notification.ChannelSMS:   PhoneValidator{},
		notification.ChannelPush:  PushTokenValidator{},
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
