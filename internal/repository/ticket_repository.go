package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter captures list query parameters. Email and assignee matches
// are partial and case-insensitive; transaction id is exact.
type TicketFilter struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	CustomerEmail *string
	MerchantEmail *string
	AssignedTo    *string
	TransactionID *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	WithTx(tx pgx.Tx) TicketRepository
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
	ListMerchantActivitySince(ctx context.Context, since time.Time) ([]domain.Ticket, error)
	StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error)
	PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error)
	AvgResolutionHours(ctx context.Context) (float64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountResolvedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountUrgentOpen(ctx context.Context) (int64, error)
	CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

const ticketColumns = `id, ticket_number, customer_email, merchant_email, subject, description,
               status, priority, transaction_id, assigned_to, tags, metadata, created_at, updated_at, resolved_at`

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{db: pool}
}

func (r *ticketRepository) WithTx(tx pgx.Tx) TicketRepository {
	return &ticketRepository{db: tx}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, customer_email, merchant_email, subject, description, status, priority, transaction_id, assigned_to, tags, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerEmail,
		ticket.MerchantEmail,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.TransactionID,
		ticket.AssignedTo,
		ticket.Tags,
		ticket.Metadata,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, transaction_id=$3, assigned_to=$4,
            tags=$5, metadata=$6, resolved_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.TransactionID,
		ticket.AssignedTo,
		ticket.Tags,
		ticket.Metadata,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.CustomerEmail != nil {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.CustomerEmail))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(customer_email) LIKE $%d", len(args)))
	}
	if filter.MerchantEmail != nil {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.MerchantEmail))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(merchant_email) LIKE $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.AssignedTo))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(assigned_to) LIKE $%d", len(args)))
	}
	if filter.TransactionID != nil {
		args = append(args, *filter.TransactionID)
		clauses = append(clauses, fmt.Sprintf("transaction_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE status=$1 AND resolved_at IS NOT NULL AND resolved_at < $2 ORDER BY resolved_at ASC`, ticketColumns)
	rows, err := r.db.Query(ctx, query, domain.TicketStatusResolved, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListMerchantActivitySince(ctx context.Context, since time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE merchant_email <> '' AND updated_at >= $1 ORDER BY merchant_email, updated_at DESC`, ticketColumns)
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64)
	for rows.Next() {
		var status domain.TicketStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error) {
	const query = `SELECT priority, COUNT(*) FROM tickets GROUP BY priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketPriority]int64)
	for rows.Next() {
		var priority domain.TicketPriority
		var count int64
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[priority] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) AvgResolutionHours(ctx context.Context) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600), 0)
        FROM tickets WHERE resolved_at IS NOT NULL`
	var hours float64
	if err := r.db.QueryRow(ctx, query).Scan(&hours); err != nil {
		return 0, err
	}
	return hours, nil
}

func (r *ticketRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE created_at >= $1 AND created_at < $2`
	var count int64
	err := r.db.QueryRow(ctx, query, from, to).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountResolvedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE resolved_at IS NOT NULL AND resolved_at >= $1 AND resolved_at < $2`
	var count int64
	err := r.db.QueryRow(ctx, query, from, to).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountUrgentOpen(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE priority=$1 AND status IN ($2,$3)`
	var count int64
	err := r.db.QueryRow(ctx, query, domain.TicketPriorityUrgent, domain.TicketStatusOpen, domain.TicketStatusInProgress).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountOpenOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE status IN ($1,$2) AND created_at < $3`
	var count int64
	err := r.db.QueryRow(ctx, query, domain.TicketStatusOpen, domain.TicketStatusInProgress, cutoff).Scan(&count)
	return count, err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerEmail,
		&ticket.MerchantEmail,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.TransactionID,
		&ticket.AssignedTo,
		&ticket.Tags,
		&ticket.Metadata,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
