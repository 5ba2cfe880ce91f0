package notify

import (
	"encoding/json"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// WhatsAppWebhookPayload mirrors the Cloud API webhook envelope.
type WhatsAppWebhookPayload struct {
	Object string          `json:"object"`
	Entry  []WhatsAppEntry `json:"entry"`
}

// WhatsAppEntry is one account-level entry in a webhook delivery.
type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

// WhatsAppChange wraps one field change notification.
type WhatsAppChange struct {
	Field string        `json:"field"`
	Value WhatsAppValue `json:"value"`
}

// WhatsAppValue carries the messages and status callbacks of a change.
type WhatsAppValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Contacts         []WhatsAppContact `json:"contacts"`
	Messages         []WhatsAppMessage `json:"messages"`
	Statuses         []WhatsAppStatus  `json:"statuses"`
}

// WhatsAppContact identifies a message sender.
type WhatsAppContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// WhatsAppMessage is one inbound message.
type WhatsAppMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// WhatsAppStatus is one delivery-status callback for a previously sent message.
type WhatsAppStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// ParseWhatsAppPayload decodes a webhook body.
func ParseWhatsAppPayload(body []byte) (*WhatsAppWebhookPayload, error) {
	var payload WhatsAppWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// InboundMessages flattens inbound messages across all entries.
func (p *WhatsAppWebhookPayload) InboundMessages() []WhatsAppMessage {
	var messages []WhatsAppMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			messages = append(messages, change.Value.Messages...)
		}
	}
	return messages
}

// StatusCallbacks flattens delivery-status callbacks across all entries.
func (p *WhatsAppWebhookPayload) StatusCallbacks() []WhatsAppStatus {
	var statuses []WhatsAppStatus
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			statuses = append(statuses, change.Value.Statuses...)
		}
	}
	return statuses
}

// WantsStatusHelp reports whether inbound free text is asking to track an
// order or check a status.
func WantsStatusHelp(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "track") || strings.Contains(lower, "status")
}

// MapDeliveryStatus converts a provider delivery state to a log status. The
// second return is false for states that should not touch the log row.
func MapDeliveryStatus(state string) (domain.NotificationStatus, bool) {
	switch strings.ToLower(state) {
	case "sent", "delivered", "read":
		return domain.NotificationStatusSent, true
	case "failed":
		return domain.NotificationStatusFailed, true
	}
	return "", false
}
