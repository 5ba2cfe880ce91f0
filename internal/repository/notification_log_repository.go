package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChannelStat aggregates delivery outcomes for one notification channel.
type ChannelStat struct {
	Channel            string
	Total              int64
	Sent               int64
	Failed             int64
	AvgDeliverySeconds float64
}

// NotificationLogRepository stores delivery attempts for both channels.
type NotificationLogRepository interface {
	CreateEmail(ctx context.Context, log *domain.EmailLog) error
	MarkEmail(ctx context.Context, id int64, status domain.NotificationStatus, errDetail string) error
	CreateWhatsApp(ctx context.Context, log *domain.WhatsAppLog) error
	MarkWhatsApp(ctx context.Context, id int64, status domain.NotificationStatus, providerMessageID, errDetail string) error
	MarkWhatsAppByProviderID(ctx context.Context, providerMessageID string, status domain.NotificationStatus) error
	ListEmailByTicket(ctx context.Context, ticketID int64) ([]domain.EmailLog, error)
	ChannelStats(ctx context.Context, since time.Time) ([]ChannelStat, error)
	CountFailedSince(ctx context.Context, channel string, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (emails, whatsapp int64, err error)
}

type notificationLogRepository struct {
	db Querier
}

// NewNotificationLogRepository builds repository.
func NewNotificationLogRepository(pool *pgxpool.Pool) NotificationLogRepository {
	return &notificationLogRepository{db: pool}
}

func (r *notificationLogRepository) CreateEmail(ctx context.Context, log *domain.EmailLog) error {
	const query = `
        INSERT INTO email_logs (recipient, ticket_id, transaction_id, message_type, subject, content, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		log.Recipient,
		log.TicketID,
		log.TransactionID,
		log.MessageType,
		log.Subject,
		log.Content,
		log.Status,
	).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
}

func (r *notificationLogRepository) MarkEmail(ctx context.Context, id int64, status domain.NotificationStatus, errDetail string) error {
	const query = `UPDATE email_logs SET status=$1, error_detail=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.db.Exec(ctx, query, status, errDetail, id)
	return err
}

func (r *notificationLogRepository) CreateWhatsApp(ctx context.Context, log *domain.WhatsAppLog) error {
	const query = `
        INSERT INTO whatsapp_logs (recipient, ticket_id, transaction_id, message_type, content, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		log.Recipient,
		log.TicketID,
		log.TransactionID,
		log.MessageType,
		log.Content,
		log.Status,
	).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
}

func (r *notificationLogRepository) MarkWhatsApp(ctx context.Context, id int64, status domain.NotificationStatus, providerMessageID, errDetail string) error {
	const query = `UPDATE whatsapp_logs SET status=$1, provider_message_id=$2, error_detail=$3, updated_at=NOW() WHERE id=$4`
	_, err := r.db.Exec(ctx, query, status, providerMessageID, errDetail, id)
	return err
}

func (r *notificationLogRepository) MarkWhatsAppByProviderID(ctx context.Context, providerMessageID string, status domain.NotificationStatus) error {
	const query = `UPDATE whatsapp_logs SET status=$1, updated_at=NOW() WHERE provider_message_id=$2`
	_, err := r.db.Exec(ctx, query, status, providerMessageID)
	return err
}

func (r *notificationLogRepository) ListEmailByTicket(ctx context.Context, ticketID int64) ([]domain.EmailLog, error) {
	const query = `
        SELECT id, recipient, ticket_id, transaction_id, message_type, subject, content, status, error_detail, created_at, updated_at
        FROM email_logs WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailLog
	for rows.Next() {
		var log domain.EmailLog
		if err := rows.Scan(
			&log.ID,
			&log.Recipient,
			&log.TicketID,
			&log.TransactionID,
			&log.MessageType,
			&log.Subject,
			&log.Content,
			&log.Status,
			&log.ErrorDetail,
			&log.CreatedAt,
			&log.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

func (r *notificationLogRepository) ChannelStats(ctx context.Context, since time.Time) ([]ChannelStat, error) {
	const query = `
        SELECT 'email' AS channel,
               COUNT(*),
               COUNT(*) FILTER (WHERE status='sent'),
               COUNT(*) FILTER (WHERE status='failed'),
               COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at))) FILTER (WHERE status='sent'), 0)
        FROM email_logs WHERE created_at >= $1
        UNION ALL
        SELECT 'whatsapp',
               COUNT(*),
               COUNT(*) FILTER (WHERE status='sent'),
               COUNT(*) FILTER (WHERE status='failed'),
               COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at))) FILTER (WHERE status='sent'), 0)
        FROM whatsapp_logs WHERE created_at >= $1`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ChannelStat
	for rows.Next() {
		var stat ChannelStat
		if err := rows.Scan(&stat.Channel, &stat.Total, &stat.Sent, &stat.Failed, &stat.AvgDeliverySeconds); err != nil {
			return nil, err
		}
		result = append(result, stat)
	}
	return result, rows.Err()
}

func (r *notificationLogRepository) CountFailedSince(ctx context.Context, channel string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM email_logs WHERE status='failed' AND created_at >= $1`
	if channel == "whatsapp" {
		query = `SELECT COUNT(*) FROM whatsapp_logs WHERE status='failed' AND created_at >= $1`
	}
	var count int64
	err := r.db.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

func (r *notificationLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	emailCmd, err := r.db.Exec(ctx, `DELETE FROM email_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, 0, err
	}
	whatsappCmd, err := r.db.Exec(ctx, `DELETE FROM whatsapp_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return emailCmd.RowsAffected(), 0, err
	}
	return emailCmd.RowsAffected(), whatsappCmd.RowsAffected(), nil
}
