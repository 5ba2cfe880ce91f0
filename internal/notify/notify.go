package notify

import "context"

// Channel names recorded on results and logs.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Outcome classifies one delivery attempt.
type Outcome string

const (
	// OutcomeDelivered means the provider accepted the message.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeFailed means a send was attempted and rejected.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means no send was attempted (channel unconfigured or
	// no usable recipient); no log row is written.
	OutcomeSkipped Outcome = "skipped"
)

// Result reports what happened to one outbound message. Workflows log
// failures and move on; a Result never aborts the triggering operation.
type Result struct {
	Channel   string
	Outcome   Outcome
	MessageID string
	Err       error
}

// EmailMessage is one outbound email.
type EmailMessage struct {
	To            string
	Subject       string
	Body          string
	MessageType   string
	TicketID      *int64
	TransactionID *int64
}

// TextMessage is one outbound WhatsApp text.
type TextMessage struct {
	To            string
	Body          string
	MessageType   string
	TicketID      *int64
	TransactionID *int64
}

// EmailSender delivers transactional email and records the attempt.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) Result
}

// WhatsAppSender delivers WhatsApp text messages and records the attempt.
type WhatsAppSender interface {
	SendText(ctx context.Context, msg TextMessage) Result
}

func skipped(channel string) Result {
	return Result{Channel: channel, Outcome: OutcomeSkipped}
}
