package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTransactionCreated EventType = "transaction_created"
	EventTransactionUpdated EventType = "transaction_updated"
)

// Event represents a domain event emitted by workflows.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	EntityType domain.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	Reference  string            `json:"reference"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload"`
}

// TicketEventPayload payload.
type TicketEventPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	Status       domain.TicketStatus   `json:"status"`
	OldStatus    *domain.TicketStatus  `json:"old_status,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
}

// TransactionEventPayload payload.
type TransactionEventPayload struct {
	TransactionID string                    `json:"transaction_id"`
	Status        domain.TransactionStatus  `json:"status"`
	OldStatus     *domain.TransactionStatus `json:"old_status,omitempty"`
	Amount        decimal.Decimal           `json:"amount"`
	Currency      string                    `json:"currency"`
}
