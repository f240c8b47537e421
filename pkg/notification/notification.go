// Package notification contains the public domain models shared by the dispatch
// core, the senders and the inbound adapters.
package notification

import (
	"fmt"
	"strings"
)

// Channel identifies the delivery medium of a notification.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}

// Valid reports whether c is one of the closed set of channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel accepts any casing of a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported notification type: %s", s)
	}
	return c, nil
}

// Recipient holds the addresses a notification may be delivered to.
// Which field is used depends on the channel.
type Recipient struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	DeviceToken string `json:"deviceToken,omitempty"`
	Name        string `json:"name,omitempty"`
}

// EmailContent is the email-only part of a notification.
type EmailContent struct {
	Subject   string   `json:"subject"`
	HTMLBody  string   `json:"htmlBody,omitempty"`
	CC        []string `json:"cc,omitempty"`
	BCC       []string `json:"bcc,omitempty"`
	FromEmail string   `json:"fromEmail,omitempty"`
	FromName  string   `json:"fromName,omitempty"`
}

// SMSContent is the SMS-only part of a notification.
type SMSContent struct {
	FromNumber string `json:"fromNumber,omitempty"`
}

// PushContent is the push-only part of a notification.
type PushContent struct {
	Title string            `json:"title"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notification is a single message to deliver. Channel is the discriminator;
// exactly one of Email, SMS or Push is expected to be set and match it.
//
// Notifications are passed by value and never modified after construction.
type Notification struct {
	ID        string            `json:"id"`
	Channel   Channel           `json:"type"`
	Recipient Recipient         `json:"recipient"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	Email *EmailContent `json:"email,omitempty"`
	SMS   *SMSContent   `json:"sms,omitempty"`
	Push  *PushContent  `json:"push,omitempty"`
}

// NewEmail builds an email notification.
func NewEmail(id string, to Recipient, subject, body string, content EmailContent) Notification {
	content.Subject = subject
	return Notification{
		ID:        id,
		Channel:   ChannelEmail,
		Recipient: to,
		Body:      body,
		Metadata:  map[string]string{},
		Email:     &content,
	}
}

// NewSMS builds an SMS notification.
func NewSMS(id string, to Recipient, body string, content SMSContent) Notification {
	return Notification{
		ID:        id,
		Channel:   ChannelSMS,
		Recipient: to,
		Body:      body,
		Metadata:  map[string]string{},
		SMS:       &content,
	}
}

// NewPush builds a push notification.
func NewPush(id string, to Recipient, title, body string, data map[string]string) Notification {
	if data == nil {
		data = map[string]string{}
	}
	return Notification{
		ID:        id,
		Channel:   ChannelPush,
		Recipient: to,
		Body:      body,
		Metadata:  map[string]string{},
		Push:      &PushContent{Title: title, Data: data},
	}
}

// Subject returns the email subject, or "" for other channels.
func (n Notification) Subject() string {
	if n.Email == nil {
		return ""
	}
	return n.Email.Subject
}

// Title returns the push title, or "" for other channels.
func (n Notification) Title() string {
	if n.Push == nil {
		return ""
	}
	return n.Push.Title
}

// Data returns the push data payload. Never nil.
func (n Notification) Data() map[string]string {
	if n.Push == nil || n.Push.Data == nil {
		return map[string]string{}
	}
	return n.Push.Data
}
