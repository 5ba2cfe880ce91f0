package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// WebhookLogFilter captures webhook log query parameters.
type WebhookLogFilter struct {
	Source      *domain.WebhookSource
	EventType   *string
	Status      *domain.WebhookStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// WebhookLogRepository stores inbound webhook records.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
	Mark(ctx context.Context, id int64, status domain.WebhookStatus, errDetail string) error
	ListWithFilter(ctx context.Context, filter WebhookLogFilter) ([]domain.WebhookLog, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookLogRepository struct {
	db Querier
}

// NewWebhookLogRepository builds repository.
func NewWebhookLogRepository(pool *pgxpool.Pool) WebhookLogRepository {
	return &webhookLogRepository{db: pool}
}

func (r *webhookLogRepository) Create(ctx context.Context, log *domain.WebhookLog) error {
	const query = `
        INSERT INTO webhook_logs (source, event_type, payload, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		log.Source,
		log.EventType,
		log.Payload,
		log.Status,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *webhookLogRepository) Mark(ctx context.Context, id int64, status domain.WebhookStatus, errDetail string) error {
	const query = `UPDATE webhook_logs SET status=$1, error_detail=$2, processed_at=NOW() WHERE id=$3`
	_, err := r.db.Exec(ctx, query, status, errDetail, id)
	return err
}

func (r *webhookLogRepository) ListWithFilter(ctx context.Context, filter WebhookLogFilter) ([]domain.WebhookLog, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Source != nil {
		args = append(args, *filter.Source)
		clauses = append(clauses, fmt.Sprintf("source=$%d", len(args)))
	}
	if filter.EventType != nil {
		args = append(args, *filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM webhook_logs WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT id, source, event_type, payload, status, error_detail, created_at, processed_at
        FROM webhook_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.WebhookLog
	for rows.Next() {
		var log domain.WebhookLog
		if err := rows.Scan(
			&log.ID,
			&log.Source,
			&log.EventType,
			&log.Payload,
			&log.Status,
			&log.ErrorDetail,
			&log.CreatedAt,
			&log.ProcessedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *webhookLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM webhook_logs WHERE created_at < $1`
	cmd, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
