package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus enumerates payment lifecycle states.
type TransactionStatus string

const (
	TransactionStatusInitiated  TransactionStatus = "initiated"
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusRefunded   TransactionStatus = "refunded"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// ValidTransactionStatus reports whether s is a known transaction status.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case TransactionStatusInitiated, TransactionStatusPending, TransactionStatusProcessing,
		TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusRefunded,
		TransactionStatusCancelled:
		return true
	}
	return false
}

// TerminalTransactionStatuses are the states a transaction cannot leave on
// its own; entering one stamps completed_at.
var TerminalTransactionStatuses = []TransactionStatus{
	TransactionStatusSuccess,
	TransactionStatusFailed,
	TransactionStatusRefunded,
	TransactionStatusCancelled,
}

// IsTerminal reports whether s belongs to the terminal set.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusRefunded, TransactionStatusCancelled:
		return true
	}
	return false
}

// Transaction is the aggregate for tracked payments.
type Transaction struct {
	ID              int64
	TransactionID   string
	PayerEmail      string
	MerchantEmail   string
	Amount          decimal.Decimal
	Currency        string
	Status          TransactionStatus
	PaymentMethod   string
	GatewayResponse map[string]any
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// Phone returns the WhatsApp-capable phone number carried in the transaction
// metadata, or empty when none was captured.
func (t *Transaction) Phone() string {
	if t.Metadata == nil {
		return ""
	}
	if v, ok := t.Metadata["phone"].(string); ok {
		return v
	}
	return ""
}
