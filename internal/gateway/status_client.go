package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TransactionStatus is the externally observed state of one transaction.
type TransactionStatus struct {
	TransactionID   string          `json:"transaction_id"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	PayerEmail      string          `json:"payer_email"`
	MerchantEmail   string          `json:"merchant_email"`
	GatewayResponse map[string]any  `json:"gateway_response"`
}

// StatusClient fetches transaction state from the external status source.
type StatusClient interface {
	FetchStatus(ctx context.Context, transactionID string) (*TransactionStatus, error)
}

type httpStatusClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewStatusClient builds the HTTP status source client. With no base URL
// configured every fetch reports an external-service error, which sync
// treats as a soft failure.
func NewStatusClient(cfg config.StatusAPIConfig, logger *zap.Logger) StatusClient {
	if cfg.BaseURL == "" {
		logger.Warn("STATUS_API_BASE_URL not provided; transaction sync will be skipped")
	}
	return &httpStatusClient{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

func (c *httpStatusClient) FetchStatus(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	if c.baseURL == "" {
		return nil, apperrors.NewExternalServiceError("status source", fmt.Errorf("base url not configured"))
	}

	endpoint := fmt.Sprintf("%s/v1/transactions/%s", c.baseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("status source", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewExternalServiceError("status source", fmt.Errorf("transaction %s unknown upstream", transactionID))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, apperrors.NewExternalServiceError("status source", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var status TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, apperrors.NewExternalServiceError("status source", err)
	}
	if status.TransactionID == "" {
		status.TransactionID = transactionID
	}
	return &status, nil
}
