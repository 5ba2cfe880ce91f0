package domain

import "time"

// EntityType names the aggregate a status update belongs to.
type EntityType string

const (
	EntityTicket      EntityType = "ticket"
	EntityTransaction EntityType = "transaction"
)

// Actor values recorded in the updated_by column.
const (
	ActorSystem    = "system"
	ActorWebhook   = "webhook"
	ActorScheduler = "scheduler"
)

// StatusUpdate is an immutable audit trail entry; creation is recorded with a
// nil old status.
type StatusUpdate struct {
	ID         int64
	EntityType EntityType
	EntityID   int64
	OldStatus  *string
	NewStatus  string
	UpdatedBy  string
	Reason     string
	CreatedAt  time.Time
}
