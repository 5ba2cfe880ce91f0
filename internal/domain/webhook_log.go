package domain

import "time"

// WebhookSource names the origin of an inbound webhook.
type WebhookSource string

const (
	WebhookSourceWhatsApp    WebhookSource = "whatsapp"
	WebhookSourceEmail       WebhookSource = "email"
	WebhookSourceTransaction WebhookSource = "transaction"
	WebhookSourceCRM         WebhookSource = "crm"
)

// WebhookStatus tracks processing of an inbound webhook.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusProcessed WebhookStatus = "processed"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// WebhookLog records one received webhook and its processing outcome.
type WebhookLog struct {
	ID          int64
	Source      WebhookSource
	EventType   string
	Payload     map[string]any
	Status      WebhookStatus
	ErrorDetail string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
