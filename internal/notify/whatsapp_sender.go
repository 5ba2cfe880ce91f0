package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

type whatsAppSender struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	configured  bool
	logs        repository.NotificationLogRepository
	logger      *zap.Logger
}

type whatsAppSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppSendText `json:"text"`
}

type whatsAppSendText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsAppSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// NewWhatsAppSender builds the Cloud API-backed WhatsApp sender. Without
// credentials configured, sends are skipped rather than failed.
func NewWhatsAppSender(cfg config.WhatsAppConfig, logs repository.NotificationLogRepository, logger *zap.Logger) WhatsAppSender {
	if !cfg.Configured() {
		logger.Warn("WhatsApp credentials not provided; WhatsApp delivery disabled")
	}
	return &whatsAppSender{
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		endpoint:    fmt.Sprintf("%s/%s/%s/messages", cfg.BaseURL, cfg.APIVersion, cfg.PhoneNumberID),
		accessToken: cfg.AccessToken,
		configured:  cfg.Configured(),
		logs:        logs,
		logger:      logger,
	}
}

func (s *whatsAppSender) SendText(ctx context.Context, msg TextMessage) Result {
	if msg.To == "" || !s.configured {
		return skipped(ChannelWhatsApp)
	}

	log := &domain.WhatsAppLog{
		Recipient:     msg.To,
		TicketID:      msg.TicketID,
		TransactionID: msg.TransactionID,
		MessageType:   msg.MessageType,
		Content:       msg.Body,
		Status:        domain.NotificationStatusPending,
	}
	if err := s.logs.CreateWhatsApp(ctx, log); err != nil {
		s.logger.Warn("record whatsapp log", zap.Error(err))
	}

	payload, err := json.Marshal(whatsAppSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.To,
		Type:             "text",
		Text:             whatsAppSendText{Body: msg.Body},
	})
	if err != nil {
		return s.fail(ctx, log, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return s.fail(ctx, log, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return s.fail(ctx, log, apperrors.NewExternalServiceError("whatsapp", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := apperrors.NewExternalServiceError("whatsapp", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		return s.fail(ctx, log, err)
	}

	var parsed whatsAppSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return s.fail(ctx, log, err)
	}

	messageID := ""
	if len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}
	s.mark(ctx, log, domain.NotificationStatusSent, messageID, "")
	return Result{Channel: ChannelWhatsApp, Outcome: OutcomeDelivered, MessageID: messageID}
}

func (s *whatsAppSender) fail(ctx context.Context, log *domain.WhatsAppLog, err error) Result {
	s.mark(ctx, log, domain.NotificationStatusFailed, "", err.Error())
	s.logger.Warn("whatsapp send failed", zap.String("recipient", log.Recipient), zap.Error(err))
	return Result{Channel: ChannelWhatsApp, Outcome: OutcomeFailed, Err: err}
}

func (s *whatsAppSender) mark(ctx context.Context, log *domain.WhatsAppLog, status domain.NotificationStatus, messageID, detail string) {
	if log.ID == 0 {
		return
	}
	if err := s.logs.MarkWhatsApp(ctx, log.ID, status, messageID, detail); err != nil {
		s.logger.Warn("update whatsapp log", zap.Error(err))
	}
}
