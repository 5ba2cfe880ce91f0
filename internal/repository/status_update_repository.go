package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// StatusUpdateRepository stores append-only audit entries.
type StatusUpdateRepository interface {
	WithTx(tx pgx.Tx) StatusUpdateRepository
	Create(ctx context.Context, update *domain.StatusUpdate) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]domain.StatusUpdate, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type statusUpdateRepository struct {
	db Querier
}

// NewStatusUpdateRepository builds repository.
func NewStatusUpdateRepository(pool *pgxpool.Pool) StatusUpdateRepository {
	return &statusUpdateRepository{db: pool}
}

func (r *statusUpdateRepository) WithTx(tx pgx.Tx) StatusUpdateRepository {
	return &statusUpdateRepository{db: tx}
}

func (r *statusUpdateRepository) Create(ctx context.Context, update *domain.StatusUpdate) error {
	const query = `
        INSERT INTO status_updates (entity_type, entity_id, old_status, new_status, updated_by, reason)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		update.EntityType,
		update.EntityID,
		update.OldStatus,
		update.NewStatus,
		update.UpdatedBy,
		update.Reason,
	).Scan(&update.ID, &update.CreatedAt)
}

func (r *statusUpdateRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]domain.StatusUpdate, error) {
	const query = `
        SELECT id, entity_type, entity_id, old_status, new_status, updated_by, reason, created_at
        FROM status_updates WHERE entity_type=$1 AND entity_id=$2 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusUpdate
	for rows.Next() {
		var update domain.StatusUpdate
		if err := rows.Scan(
			&update.ID,
			&update.EntityType,
			&update.EntityID,
			&update.OldStatus,
			&update.NewStatus,
			&update.UpdatedBy,
			&update.Reason,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}

func (r *statusUpdateRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM status_updates WHERE created_at >= $1`
	var count int64
	err := r.db.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

func (r *statusUpdateRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM status_updates WHERE created_at < $1`
	cmd, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
