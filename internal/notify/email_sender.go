package notify

import (
	"context"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

type smtpEmailSender struct {
	client *mail.Client
	from   string
	logs   repository.NotificationLogRepository
	logger *zap.Logger
}

// NewEmailSender builds the SMTP-backed email sender. With no SMTP host
// configured, sends are skipped rather than failed.
func NewEmailSender(cfg config.EmailConfig, logs repository.NotificationLogRepository, logger *zap.Logger) (EmailSender, error) {
	if !cfg.Configured() {
		logger.Warn("SMTP_HOST not provided; email delivery disabled")
		return &smtpEmailSender{from: cfg.From, logs: logs, logger: logger}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &smtpEmailSender{client: client, from: cfg.From, logs: logs, logger: logger}, nil
}

func (s *smtpEmailSender) Send(ctx context.Context, msg EmailMessage) Result {
	if msg.To == "" || s.client == nil {
		return skipped(ChannelEmail)
	}

	log := &domain.EmailLog{
		Recipient:     msg.To,
		TicketID:      msg.TicketID,
		TransactionID: msg.TransactionID,
		MessageType:   msg.MessageType,
		Subject:       msg.Subject,
		Content:       msg.Body,
		Status:        domain.NotificationStatusPending,
	}
	if err := s.logs.CreateEmail(ctx, log); err != nil {
		s.logger.Warn("record email log", zap.Error(err))
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return s.fail(ctx, log, err)
	}
	if err := m.To(msg.To); err != nil {
		return s.fail(ctx, log, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return s.fail(ctx, log, err)
	}

	s.mark(ctx, log, domain.NotificationStatusSent, "")
	return Result{Channel: ChannelEmail, Outcome: OutcomeDelivered}
}

func (s *smtpEmailSender) fail(ctx context.Context, log *domain.EmailLog, err error) Result {
	s.mark(ctx, log, domain.NotificationStatusFailed, err.Error())
	s.logger.Warn("email send failed", zap.String("recipient", log.Recipient), zap.Error(err))
	return Result{Channel: ChannelEmail, Outcome: OutcomeFailed, Err: err}
}

func (s *smtpEmailSender) mark(ctx context.Context, log *domain.EmailLog, status domain.NotificationStatus, detail string) {
	if log.ID == 0 {
		return
	}
	if err := s.logs.MarkEmail(ctx, log.ID, status, detail); err != nil {
		s.logger.Warn("update email log", zap.Error(err))
	}
}
