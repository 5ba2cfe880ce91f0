package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TrendPoint is one time bucket in a trend series.
type TrendPoint struct {
	Bucket time.Time
	Count  int64
}

// ActivityEntry is one row of the merged recent-activity feed.
type ActivityEntry struct {
	EntityType domain.EntityType
	EntityID   int64
	Reference  string
	OldStatus  *string
	NewStatus  string
	UpdatedBy  string
	CreatedAt  time.Time
}

// DashboardRepository serves read-side aggregation queries.
type DashboardRepository interface {
	TicketTrend(ctx context.Context, bucket string, from time.Time) ([]TrendPoint, error)
	TransactionTrend(ctx context.Context, bucket string, from time.Time) ([]TrendPoint, error)
	RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error)
}

type dashboardRepository struct {
	db Querier
}

// NewDashboardRepository builds repository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{db: pool}
}

func (r *dashboardRepository) TicketTrend(ctx context.Context, bucket string, from time.Time) ([]TrendPoint, error) {
	const query = `
        SELECT date_trunc($1, created_at) AS bucket, COUNT(*)
        FROM tickets WHERE created_at >= $2
        GROUP BY bucket ORDER BY bucket ASC`
	return r.queryTrend(ctx, query, bucket, from)
}

func (r *dashboardRepository) TransactionTrend(ctx context.Context, bucket string, from time.Time) ([]TrendPoint, error) {
	const query = `
        SELECT date_trunc($1, created_at) AS bucket, COUNT(*)
        FROM transactions WHERE created_at >= $2
        GROUP BY bucket ORDER BY bucket ASC`
	return r.queryTrend(ctx, query, bucket, from)
}

func (r *dashboardRepository) queryTrend(ctx context.Context, query, bucket string, from time.Time) ([]TrendPoint, error) {
	rows, err := r.db.Query(ctx, query, bucket, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TrendPoint
	for rows.Next() {
		var point TrendPoint
		if err := rows.Scan(&point.Bucket, &point.Count); err != nil {
			return nil, err
		}
		result = append(result, point)
	}
	return result, rows.Err()
}

func (r *dashboardRepository) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT su.entity_type, su.entity_id,
               COALESCE(t.ticket_number, x.transaction_id, '') AS reference,
               su.old_status, su.new_status, su.updated_by, su.created_at
        FROM status_updates su
        LEFT JOIN tickets t ON su.entity_type='ticket' AND su.entity_id=t.id
        LEFT JOIN transactions x ON su.entity_type='transaction' AND su.entity_id=x.id
        ORDER BY su.created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		if err := rows.Scan(
			&entry.EntityType,
			&entry.EntityID,
			&entry.Reference,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.UpdatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
