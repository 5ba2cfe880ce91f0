package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TxRunner executes a function inside one database transaction so that a
// row update and its audit insert commit or roll back together.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      TxRunner
	tickets    repository.TicketRepository
	txns       repository.TransactionRepository
	audits     repository.StatusUpdateRepository
	emails     notify.EmailSender
	whatsapp   notify.WhatsAppSender
	dispatcher events.Dispatcher
	node       *snowflake.Node
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store           TxRunner
	TicketRepo      repository.TicketRepository
	TransactionRepo repository.TransactionRepository
	AuditRepo       repository.StatusUpdateRepository
	EmailSender     notify.EmailSender
	WhatsAppSender  notify.WhatsAppSender
	Dispatcher      events.Dispatcher
	Node            *snowflake.Node
	Logger          *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerEmail string
	MerchantEmail string
	Subject       string
	Description   string
	Priority      domain.TicketPriority
	TransactionID *string
	AssignedTo    *string
	Tags          []string
	Metadata      map[string]any
}

// TicketUpdateInput carries the mutable fields of a ticket; nil fields are
// left unchanged.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
	Tags       []string
	Metadata   map[string]any
	Resolution string
	UpdatedBy  string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	CustomerEmail *string
	MerchantEmail *string
	AssignedTo    *string
	TransactionID *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	Limit         int
}

// TicketDetail is a ticket with its audit trail and linked transaction.
type TicketDetail struct {
	Ticket      *domain.Ticket
	History     []domain.StatusUpdate
	Transaction *domain.Transaction
}

// TicketStats aggregates ticket counts.
type TicketStats struct {
	Total              int64
	ByStatus           map[domain.TicketStatus]int64
	ByPriority         map[domain.TicketPriority]int64
	AvgResolutionHours float64
	ResolutionRate     float64
}

// IncomingEmail is a normalized inbound support email.
type IncomingEmail struct {
	From      string
	To        string
	Subject   string
	Body      string
	MessageID string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		tickets:    deps.TicketRepo,
		txns:       deps.TransactionRepo,
		audits:     deps.AuditRepo,
		emails:     deps.EmailSender,
		whatsapp:   deps.WhatsAppSender,
		dispatcher: deps.Dispatcher,
		node:       deps.Node,
		logger:     deps.Logger,
	}
}

// Create opens a new ticket, records the creation audit row and sends the
// acknowledgment notifications.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		details["customer_email"] = "required"
	}
	if strings.TrimSpace(input.Subject) == "" {
		details["subject"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("customer_email and subject are required", details)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		TicketNumber:  s.generateTicketNumber(),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		MerchantEmail: strings.TrimSpace(input.MerchantEmail),
		Subject:       strings.TrimSpace(input.Subject),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		TransactionID: input.TransactionID,
		AssignedTo:    input.AssignedTo,
		Tags:          input.Tags,
		Metadata:      input.Metadata,
	}

	// Numbers are unique with overwhelming probability; the unique index is
	// the backstop, so a single regenerate-and-retry is enough.
	err := s.insertWithAudit(ctx, ticket)
	if err != nil && repository.IsUniqueViolation(err) {
		ticket.TicketNumber = s.generateTicketNumber()
		err = s.insertWithAudit(ctx, ticket)
	}
	if err != nil {
		return nil, err
	}

	s.sendAcknowledgment(ctx, ticket)
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketCreated,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Reference:  ticket.TicketNumber,
		Payload: events.TicketEventPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			Status:       ticket.Status,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// List returns one page of tickets plus the total match count.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	repoFilter := repository.TicketFilter{
		Status:        filter.Status,
		Priority:      filter.Priority,
		CustomerEmail: filter.CustomerEmail,
		MerchantEmail: filter.MerchantEmail,
		AssignedTo:    filter.AssignedTo,
		TransactionID: filter.TransactionID,
		SearchTerm:    filter.SearchTerm,
		CreatedFrom:   filter.CreatedFrom,
		CreatedTo:     filter.CreatedTo,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// Get resolves a ticket by number or numeric id and loads its audit trail
// and linked transaction.
func (s *TicketService) Get(ctx context.Context, idOrNumber string) (*TicketDetail, error) {
	ticket, err := s.findTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	history, err := s.audits.ListByEntity(ctx, domain.EntityTicket, ticket.ID)
	if err != nil {
		return nil, err
	}

	detail := &TicketDetail{Ticket: ticket, History: history}
	if ticket.TransactionID != nil && *ticket.TransactionID != "" {
		txn, err := s.txns.GetByTxnID(ctx, *ticket.TransactionID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			detail.Transaction = txn
		}
	}
	return detail, nil
}

// Update mutates the supplied fields. A status change appends an audit row
// in the same transaction and triggers status notifications.
func (s *TicketService) Update(ctx context.Context, idOrNumber string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.findTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if input.Status != nil {
		if !domain.ValidTicketStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.Priority != nil {
		if !domain.ValidTicketPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.AssignedTo != nil {
		ticket.AssignedTo = input.AssignedTo
	}
	if input.Tags != nil {
		ticket.Tags = input.Tags
	}
	if input.Metadata != nil {
		ticket.Metadata = input.Metadata
	}

	statusChanged := ticket.Status != oldStatus
	if statusChanged && ticket.Status == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		now := time.Now()
		ticket.ResolvedAt = &now
	}

	if statusChanged {
		reason := strings.TrimSpace(input.Resolution)
		if reason == "" {
			reason = fmt.Sprintf("status changed from %s to %s", oldStatus, ticket.Status)
		}
		err = s.updateWithAudit(ctx, ticket, oldStatus, actorOrSystem(input.UpdatedBy), reason)
	} else {
		err = s.tickets.Update(ctx, ticket)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": idOrNumber})
		}
		return nil, err
	}

	if statusChanged {
		s.sendStatusNotifications(ctx, ticket, input.Resolution)
	}
	s.publishEvent(ctx, ticketUpdatedEvent(ticket, oldStatus, statusChanged))
	return ticket, nil
}

// Close marks the ticket closed without removing the row.
func (s *TicketService) Close(ctx context.Context, idOrNumber, closedBy string) (*domain.Ticket, error) {
	ticket, err := s.findTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed

	if oldStatus == domain.TicketStatusClosed {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		return ticket, nil
	}

	if err := s.updateWithAudit(ctx, ticket, oldStatus, actorOrSystem(closedBy), "ticket closed"); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticketUpdatedEvent(ticket, oldStatus, true))
	return ticket, nil
}

// Stats aggregates counts, resolution time and resolution rate.
func (s *TicketService) Stats(ctx context.Context) (*TicketStats, error) {
	byStatus, err := s.tickets.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tickets.PriorityCounts(ctx)
	if err != nil {
		return nil, err
	}
	avgHours, err := s.tickets.AvgResolutionHours(ctx)
	if err != nil {
		return nil, err
	}

	stats := &TicketStats{
		ByStatus:           byStatus,
		ByPriority:         byPriority,
		AvgResolutionHours: avgHours,
	}
	for _, count := range byStatus {
		stats.Total += count
	}
	if stats.Total > 0 {
		resolved := byStatus[domain.TicketStatusResolved] + byStatus[domain.TicketStatusClosed]
		stats.ResolutionRate = float64(resolved) / float64(stats.Total) * 100
	}
	return stats, nil
}

// ProcessIncomingEmail opens a ticket from an inbound support email.
func (s *TicketService) ProcessIncomingEmail(ctx context.Context, email IncomingEmail) (*domain.Ticket, error) {
	if strings.TrimSpace(email.From) == "" || strings.TrimSpace(email.Subject) == "" {
		return nil, apperrors.NewValidationError("from and subject are required", nil)
	}

	metadata := map[string]any{"source": "email"}
	if email.MessageID != "" {
		metadata["email_message_id"] = email.MessageID
	}
	if email.To != "" {
		metadata["delivered_to"] = email.To
	}

	return s.Create(ctx, TicketCreateInput{
		CustomerEmail: email.From,
		Subject:       email.Subject,
		Description:   email.Body,
		Priority:      domain.TicketPriorityMedium,
		Metadata:      metadata,
	})
}

// AutoCloseResolved closes tickets that have sat in resolved longer than
// olderThan. Each close is independent; one failure does not stop the sweep.
func (s *TicketService) AutoCloseResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tickets, err := s.tickets.ListResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range tickets {
		ticket := &tickets[i]
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusClosed
		if err := s.updateWithAudit(ctx, ticket, oldStatus, domain.ActorScheduler, "auto-closed"); err != nil {
			s.logger.Warn("auto-close ticket", zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
			continue
		}
		closed++
		s.publishEvent(ctx, ticketUpdatedEvent(ticket, oldStatus, true))
	}
	return closed, nil
}

func (s *TicketService) insertWithAudit(ctx context.Context, ticket *domain.Ticket) error {
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.tickets.WithTx(tx).Create(ctx, ticket); err != nil {
			return err
		}
		return s.audits.WithTx(tx).Create(ctx, &domain.StatusUpdate{
			EntityType: domain.EntityTicket,
			EntityID:   ticket.ID,
			NewStatus:  string(ticket.Status),
			UpdatedBy:  domain.ActorSystem,
			Reason:     "ticket created",
		})
	})
}

func (s *TicketService) updateWithAudit(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, updatedBy, reason string) error {
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.tickets.WithTx(tx).Update(ctx, ticket); err != nil {
			return err
		}
		old := string(oldStatus)
		return s.audits.WithTx(tx).Create(ctx, &domain.StatusUpdate{
			EntityType: domain.EntityTicket,
			EntityID:   ticket.ID,
			OldStatus:  &old,
			NewStatus:  string(ticket.Status),
			UpdatedBy:  updatedBy,
			Reason:     reason,
		})
	})
}

func (s *TicketService) findTicket(ctx context.Context, idOrNumber string) (*domain.Ticket, error) {
	ref := strings.TrimSpace(idOrNumber)
	if strings.HasPrefix(strings.ToUpper(ref), domain.TicketNumberPrefix) {
		ticket, err := s.tickets.GetByNumber(ctx, strings.ToUpper(ref))
		return mapTicketLookup(ticket, err, idOrNumber)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": idOrNumber})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	return mapTicketLookup(ticket, err, idOrNumber)
}

func mapTicketLookup(ticket *domain.Ticket, err error, ref string) (*domain.Ticket, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ref})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) sendAcknowledgment(ctx context.Context, ticket *domain.Ticket) {
	subject, body := notify.TicketAckEmail(ticket)
	result := s.emails.Send(ctx, notify.EmailMessage{
		To:          ticket.CustomerEmail,
		Subject:     subject,
		Body:        body,
		MessageType: domain.MessageTypeTicketAck,
		TicketID:    &ticket.ID,
	})
	logNotifyResult(s.logger, "ticket acknowledgment", ticket.TicketNumber, result)

	if phone := ticket.Phone(); phone != "" {
		result := s.whatsapp.SendText(ctx, notify.TextMessage{
			To:          phone,
			Body:        notify.TicketAckText(ticket),
			MessageType: domain.MessageTypeTicketAck,
			TicketID:    &ticket.ID,
		})
		logNotifyResult(s.logger, "ticket acknowledgment", ticket.TicketNumber, result)
	}
}

func (s *TicketService) sendStatusNotifications(ctx context.Context, ticket *domain.Ticket, resolution string) {
	if ticket.Status == domain.TicketStatusResolved {
		subject, body := notify.TicketResolvedEmail(ticket, resolution)
		result := s.emails.Send(ctx, notify.EmailMessage{
			To:          ticket.CustomerEmail,
			Subject:     subject,
			Body:        body,
			MessageType: domain.MessageTypeTicketResolved,
			TicketID:    &ticket.ID,
		})
		logNotifyResult(s.logger, "ticket resolution", ticket.TicketNumber, result)
	}

	if phone := ticket.Phone(); phone != "" {
		result := s.whatsapp.SendText(ctx, notify.TextMessage{
			To:          phone,
			Body:        notify.TicketStatusText(ticket),
			MessageType: domain.MessageTypeTicketStatus,
			TicketID:    &ticket.ID,
		})
		logNotifyResult(s.logger, "ticket status", ticket.TicketNumber, result)
	}
}

func (s *TicketService) generateTicketNumber() string {
	return domain.TicketNumberPrefix + s.node.Generate().String()
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func ticketUpdatedEvent(ticket *domain.Ticket, oldStatus domain.TicketStatus, statusChanged bool) events.Event {
	payload := events.TicketEventPayload{
		TicketNumber: ticket.TicketNumber,
		Subject:      ticket.Subject,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
	}
	if statusChanged {
		payload.OldStatus = &oldStatus
	}
	return events.Event{
		Type:       events.EventTicketUpdated,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Reference:  ticket.TicketNumber,
		Payload:    payload,
	}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func actorOrSystem(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return domain.ActorSystem
	}
	return actor
}

func logNotifyResult(logger *zap.Logger, kind, reference string, result notify.Result) {
	switch result.Outcome {
	case notify.OutcomeFailed:
		logger.Warn("notification failed",
			zap.String("kind", kind),
			zap.String("channel", result.Channel),
			zap.String("reference", reference),
			zap.Error(result.Err))
	case notify.OutcomeSkipped:
		logger.Debug("notification skipped",
			zap.String("kind", kind),
			zap.String("channel", result.Channel),
			zap.String("reference", reference))
	default:
		logger.Debug("notification delivered",
			zap.String("kind", kind),
			zap.String("channel", result.Channel),
			zap.String("reference", reference))
	}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
