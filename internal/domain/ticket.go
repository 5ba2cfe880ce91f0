package domain

import "time"

// TicketNumberPrefix starts every human-readable ticket number.
const TicketNumberPrefix = "TK"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is a known ticket status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidTicketPriority reports whether p is a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            int64
	TicketNumber  string
	CustomerEmail string
	MerchantEmail string
	Subject       string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	TransactionID *string
	AssignedTo    *string
	Tags          []string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// Phone returns the WhatsApp-capable phone number carried in the ticket
// metadata, or empty when none was captured.
func (t *Ticket) Phone() string {
	if t.Metadata == nil {
		return ""
	}
	if v, ok := t.Metadata["phone"].(string); ok {
		return v
	}
	return ""
}
