package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// ConfigurationError is returned when no sender can serve a notification's channel.
type ConfigurationError struct {
	Channel notification.Channel
	msg     string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

func missingSender(c notification.Channel) *ConfigurationError {
	return &ConfigurationError{
		Channel: c,
		msg:     fmt.Sprintf("No %s sender configured", strings.ToLower(string(c))),
	}
}

func unsupportedChannel(c notification.Channel) *ConfigurationError {
	return &ConfigurationError{
		Channel: c,
		msg:     fmt.Sprintf("Unsupported notification type: %s", c),
	}
}

// ValidationError is returned when a notification fails pre-send validation.
type ValidationError struct {
	Channel notification.Channel
	Reason  string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError is a convenience for Validator implementations.
func NewValidationError(c notification.Channel, reason string) *ValidationError {
	return &ValidationError{Channel: c, Reason: reason}
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
