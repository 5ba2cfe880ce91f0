package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/support-desk/internal/domain"
)

// DailyReport aggregates the prior day's activity for the report email.
type DailyReport struct {
	Date                  time.Time
	TicketsCreated        int64
	TicketsResolved       int64
	TransactionsCreated   int64
	TransactionsSucceeded int64
	TransactionsFailed    int64
	Revenue               decimal.Decimal
}

// TicketAckEmail composes the acknowledgment sent when a ticket is opened.
func TicketAckEmail(t *domain.Ticket) (subject, body string) {
	subject = fmt.Sprintf("We received your request (%s)", t.TicketNumber)
	body = fmt.Sprintf(
		"Hello,\n\nThanks for reaching out. We logged your request %q under ticket %s and our team will get back to you shortly.\n\nYou can reference %s in any follow-up.\n\nSupport team",
		t.Subject, t.TicketNumber, t.TicketNumber)
	return subject, body
}

// TicketResolvedEmail composes the resolution notice.
func TicketResolvedEmail(t *domain.Ticket, resolution string) (subject, body string) {
	subject = fmt.Sprintf("Your ticket %s has been resolved", t.TicketNumber)
	if resolution == "" {
		resolution = "The issue reported in this ticket has been addressed."
	}
	body = fmt.Sprintf(
		"Hello,\n\nTicket %s (%s) is now resolved.\n\nResolution: %s\n\nIf the problem persists, reply to this email and the ticket will be reopened for review.\n\nSupport team",
		t.TicketNumber, t.Subject, resolution)
	return subject, body
}

// TicketStatusEmail composes a plain status-change notice.
func TicketStatusEmail(t *domain.Ticket, oldStatus domain.TicketStatus) (subject, body string) {
	subject = fmt.Sprintf("Update on your ticket %s", t.TicketNumber)
	body = fmt.Sprintf(
		"Hello,\n\nThe status of ticket %s (%s) changed from %s to %s.\n\nSupport team",
		t.TicketNumber, t.Subject, oldStatus, t.Status)
	return subject, body
}

// TicketStatusText composes the WhatsApp variant of a status change.
func TicketStatusText(t *domain.Ticket) string {
	return fmt.Sprintf("Ticket %s update: status is now %s. Reply to this chat if you need anything else.", t.TicketNumber, t.Status)
}

// TransactionStatusEmail composes the payment status notice.
func TransactionStatusEmail(txn *domain.Transaction) (subject, body string) {
	subject = fmt.Sprintf("Payment %s is now %s", txn.TransactionID, txn.Status)
	body = fmt.Sprintf(
		"Hello,\n\nYour payment %s for %s %s is now %s.\n\nIf you did not expect this change, contact support and quote the payment reference.\n\nSupport team",
		txn.TransactionID, txn.Amount.StringFixed(2), txn.Currency, txn.Status)
	return subject, body
}

// TransactionStatusText composes the WhatsApp variant of a payment update.
func TransactionStatusText(txn *domain.Transaction) string {
	return fmt.Sprintf("Payment %s (%s %s) is now %s.", txn.TransactionID, txn.Amount.StringFixed(2), txn.Currency, txn.Status)
}

// AutoReplyText is the canned help response for inbound WhatsApp messages
// asking about tracking or status.
func AutoReplyText() string {
	return "Thanks for your message. To check on a payment or support request, reply with your ticket number (starts with TK) or payment reference and an agent will follow up."
}

// MerchantDigestEmail composes the hourly merchant activity digest.
func MerchantDigestEmail(merchant string, tickets []domain.Ticket, txns []domain.Transaction) (subject, body string) {
	subject = fmt.Sprintf("Activity digest: %d ticket(s), %d transaction(s)", len(tickets), len(txns))

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nActivity on your account in the last hour:\n", merchant)
	if len(tickets) > 0 {
		b.WriteString("\nTickets:\n")
		for _, t := range tickets {
			fmt.Fprintf(&b, "  - %s [%s/%s] %s\n", t.TicketNumber, t.Status, t.Priority, t.Subject)
		}
	}
	if len(txns) > 0 {
		b.WriteString("\nTransactions:\n")
		for _, txn := range txns {
			fmt.Fprintf(&b, "  - %s [%s] %s %s\n", txn.TransactionID, txn.Status, txn.Amount.StringFixed(2), txn.Currency)
		}
	}
	b.WriteString("\nSupport team")
	return subject, b.String()
}

// DailyReportEmail composes the daily operations summary.
func DailyReportEmail(report DailyReport) (subject, body string) {
	subject = fmt.Sprintf("Daily support report for %s", report.Date.Format("2006-01-02"))
	body = fmt.Sprintf(
		"Daily summary for %s\n\nTickets created: %d\nTickets resolved: %d\n\nTransactions created: %d\nTransactions succeeded: %d\nTransactions failed: %d\nRevenue (successful): %s\n",
		report.Date.Format("2006-01-02"),
		report.TicketsCreated,
		report.TicketsResolved,
		report.TransactionsCreated,
		report.TransactionsSucceeded,
		report.TransactionsFailed,
		report.Revenue.StringFixed(2))
	return subject, body
}
