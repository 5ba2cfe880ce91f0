package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TransactionFilter captures list query parameters.
type TransactionFilter struct {
	Status        *domain.TransactionStatus
	PayerEmail    *string
	MerchantEmail *string
	Currency      *string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TransactionRepository encapsulates transaction persistence.
type TransactionRepository interface {
	WithTx(tx pgx.Tx) TransactionRepository
	Create(ctx context.Context, txn *domain.Transaction) error
	Upsert(ctx context.Context, txn *domain.Transaction) error
	Update(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByTxnID(ctx context.Context, txnID string) (*domain.Transaction, error)
	ListWithFilter(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, int64, error)
	PendingIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	ListMerchantActivitySince(ctx context.Context, since time.Time) ([]domain.Transaction, error)
	StatusCounts(ctx context.Context) (map[domain.TransactionStatus]int64, error)
	SuccessStats(ctx context.Context) (total, avg decimal.Decimal, err error)
	AvgCompletionHours(ctx context.Context) (float64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountCompletedBetween(ctx context.Context, status domain.TransactionStatus, from, to time.Time) (int64, error)
	SumCompletedAmountBetween(ctx context.Context, status domain.TransactionStatus, from, to time.Time) (decimal.Decimal, error)
}

const transactionColumns = `id, transaction_id, payer_email, merchant_email, amount, currency,
               status, payment_method, gateway_response, metadata, created_at, updated_at, completed_at`

type transactionRepository struct {
	db Querier
}

// NewTransactionRepository instantiates repository.
func NewTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepository{db: pool}
}

func (r *transactionRepository) WithTx(tx pgx.Tx) TransactionRepository {
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (transaction_id, payer_email, merchant_email, amount, currency, status, payment_method, gateway_response, metadata, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		txn.TransactionID,
		txn.PayerEmail,
		txn.MerchantEmail,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.PaymentMethod,
		txn.GatewayResponse,
		txn.Metadata,
		txn.CompletedAt,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
}

// Upsert inserts the transaction or, when the external id already exists,
// refreshes the sync-owned columns. completed_at is only ever written once.
func (r *transactionRepository) Upsert(ctx context.Context, txn *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (transaction_id, payer_email, merchant_email, amount, currency, status, payment_method, gateway_response, metadata, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (transaction_id) DO UPDATE SET
            status=EXCLUDED.status,
            gateway_response=EXCLUDED.gateway_response,
            completed_at=COALESCE(transactions.completed_at, EXCLUDED.completed_at),
            updated_at=NOW()
        RETURNING id, created_at, updated_at, completed_at`
	return r.db.QueryRow(ctx, query,
		txn.TransactionID,
		txn.PayerEmail,
		txn.MerchantEmail,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.PaymentMethod,
		txn.GatewayResponse,
		txn.Metadata,
		txn.CompletedAt,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt, &txn.CompletedAt)
}

func (r *transactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	const query = `
        UPDATE transactions SET status=$1, gateway_response=$2, metadata=$3, completed_at=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		txn.Status,
		txn.GatewayResponse,
		txn.Metadata,
		txn.CompletedAt,
		txn.ID,
	).Scan(&txn.UpdatedAt)
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id=$1`, transactionColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *transactionRepository) GetByTxnID(ctx context.Context, txnID string) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE transaction_id=$1`, transactionColumns)
	return r.fetchSingle(ctx, query, txnID)
}

func (r *transactionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := scanTransaction(r.db.QueryRow(ctx, query, arg), &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) ListWithFilter(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.PayerEmail != nil {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.PayerEmail))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(payer_email) LIKE $%d", len(args)))
	}
	if filter.MerchantEmail != nil {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.MerchantEmail))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(merchant_email) LIKE $%d", len(args)))
	}
	if filter.Currency != nil {
		args = append(args, strings.ToUpper(strings.TrimSpace(*filter.Currency)))
		clauses = append(clauses, fmt.Sprintf("currency=$%d", len(args)))
	}
	if filter.MinAmount != nil {
		args = append(args, *filter.MinAmount)
		clauses = append(clauses, fmt.Sprintf("amount >= $%d", len(args)))
	}
	if filter.MaxAmount != nil {
		args = append(args, *filter.MaxAmount)
		clauses = append(clauses, fmt.Sprintf("amount <= $%d", len(args)))
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
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM transactions WHERE %s`, where)
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

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		transactionColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *transactionRepository) PendingIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	const query = `
        SELECT transaction_id FROM transactions
        WHERE status IN ($1,$2,$3) AND updated_at < $4
        ORDER BY updated_at ASC LIMIT $5`
	rows, err := r.db.Query(ctx, query,
		domain.TransactionStatusInitiated,
		domain.TransactionStatusPending,
		domain.TransactionStatusProcessing,
		olderThan,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *transactionRepository) ListMerchantActivitySince(ctx context.Context, since time.Time) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE merchant_email <> '' AND updated_at >= $1 ORDER BY merchant_email, updated_at DESC`, transactionColumns)
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *transactionRepository) StatusCounts(ctx context.Context) (map[domain.TransactionStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM transactions GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TransactionStatus]int64)
	for rows.Next() {
		var status domain.TransactionStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *transactionRepository) SuccessStats(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	const query = `
        SELECT COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0)
        FROM transactions WHERE status=$1`
	var total, avg decimal.Decimal
	if err := r.db.QueryRow(ctx, query, domain.TransactionStatusSuccess).Scan(&total, &avg); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return total, avg, nil
}

func (r *transactionRepository) AvgCompletionHours(ctx context.Context) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 3600), 0)
        FROM transactions WHERE completed_at IS NOT NULL`
	var hours float64
	if err := r.db.QueryRow(ctx, query).Scan(&hours); err != nil {
		return 0, err
	}
	return hours, nil
}

func (r *transactionRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE created_at >= $1 AND created_at < $2`
	var count int64
	err := r.db.QueryRow(ctx, query, from, to).Scan(&count)
	return count, err
}

func (r *transactionRepository) CountCompletedBetween(ctx context.Context, status domain.TransactionStatus, from, to time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE status=$1 AND completed_at >= $2 AND completed_at < $3`
	var count int64
	err := r.db.QueryRow(ctx, query, status, from, to).Scan(&count)
	return count, err
}

func (r *transactionRepository) SumCompletedAmountBetween(ctx context.Context, status domain.TransactionStatus, from, to time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status=$1 AND completed_at >= $2 AND completed_at < $3`
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, status, from, to).Scan(&total)
	return total, err
}

func scanTransaction(row pgx.Row, txn *domain.Transaction) error {
	return row.Scan(
		&txn.ID,
		&txn.TransactionID,
		&txn.PayerEmail,
		&txn.MerchantEmail,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.PaymentMethod,
		&txn.GatewayResponse,
		&txn.Metadata,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.CompletedAt,
	)
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var result []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := scanTransaction(rows, &txn); err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, rows.Err()
}
