package domain

import "time"

// NotificationStatus tracks delivery progress of an outbound message.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Message types recorded on notification logs.
const (
	MessageTypeTicketAck         = "ticket_acknowledgment"
	MessageTypeTicketStatus      = "ticket_status_update"
	MessageTypeTicketResolved    = "ticket_resolution"
	MessageTypeTransactionStatus = "transaction_status_update"
	MessageTypeMerchantDigest    = "merchant_digest"
	MessageTypeDailyReport       = "daily_report"
	MessageTypeAutoReply         = "auto_reply"
)

// EmailLog records one outbound email attempt.
type EmailLog struct {
	ID            int64
	Recipient     string
	TicketID      *int64
	TransactionID *int64
	MessageType   string
	Subject       string
	Content       string
	Status        NotificationStatus
	ErrorDetail   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WhatsAppLog records one outbound WhatsApp message attempt.
type WhatsAppLog struct {
	ID                int64
	Recipient         string
	TicketID          *int64
	TransactionID     *int64
	MessageType       string
	Content           string
	Status            NotificationStatus
	ProviderMessageID string
	ErrorDetail       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
