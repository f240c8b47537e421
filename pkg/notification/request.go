package notification

import "fmt"

// Request is the flat inbound wire shape used by the Pub/Sub pipeline and the HTTP API.
//
//	{"id":"n-1","type":"EMAIL","email":"a@b.com","subject":"Hi","body":"..."}
type Request struct {
	ID          string            `json:"id,omitempty"`
	Type        string            `json:"type"`
	Email       string            `json:"email,omitempty"`
	PhoneNumber string            `json:"phoneNumber,omitempty"`
	DeviceToken string            `json:"deviceToken,omitempty"`
	Name        string            `json:"name,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	HTMLBody    string            `json:"htmlBody,omitempty"`
	FromEmail   string            `json:"fromEmail,omitempty"`
	FromName    string            `json:"fromName,omitempty"`
	FromNumber  string            `json:"fromNumber,omitempty"`
	Title       string            `json:"title,omitempty"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToNotification converts the wire request into a Notification.
// newID is called only when the request carries no id.
func (r Request) ToNotification(newID func() string) (Notification, error) {
	channel, err := ParseChannel(r.Type)
	if err != nil {
		return Notification{}, err
	}

	id := r.ID
	if id == "" {
		id = newID()
	}
	to := Recipient{
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		DeviceToken: r.DeviceToken,
		Name:        r.Name,
	}

	var n Notification
	switch channel {
	case ChannelEmail:
		n = NewEmail(id, to, r.Subject, r.Body, EmailContent{
			HTMLBody:  r.HTMLBody,
			FromEmail: r.FromEmail,
			FromName:  r.FromName,
		})
	case ChannelSMS:
		n = NewSMS(id, to, r.Body, SMSContent{FromNumber: r.FromNumber})
	case ChannelPush:
		n = NewPush(id, to, r.Title, r.Body, r.Data)
	default:
		return Notification{}, fmt.Errorf("unsupported notification type: %s", r.Type)
	}

	for k, v := range r.Metadata {
		n.Metadata[k] = v
	}
	return n, nil
}
