package settlement

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds bank rail API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is an HTTP client for the bank settlement rail
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new settlement rail client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

func (c *Client) Name() string { return "bankrail" }

type payoutPayload struct {
	Reference   string `json:"reference"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	AccountName string `json:"account_name"`
	AccountIBAN string `json:"account_iban"`
	Description string `json:"description"`
}

type payoutResult struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Payout pushes funds out to an external bank account
func (c *Client) Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return nil, fmt.Errorf("settlement config error: base_url is empty")
	}

	body, err := json.Marshal(payoutPayload{
		Reference:   req.Reference,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		AccountName: req.AccountName,
		AccountIBAN: req.AccountIBAN,
		Description: req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payout request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/payouts"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payout response: %w", err)
	}

	var result payoutResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode payout response: %w", err)
	}

	if resp.StatusCode >= 300 || result.Status == "failed" {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSettlementFailed, resp.StatusCode, result.Message)
	}

	return &PayoutResponse{ExternalID: result.ExternalID, Status: result.Status}, nil
}

type webhookPayload struct {
	EventType  string `json:"event_type"`
	Reference  string `json:"reference"`
	ExternalID string `json:"external_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Reason     string `json:"reason"`
}

// ParseWebhook verifies the HMAC signature and parses a rail callback
func (c *Client) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(c.config.APIKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook: %w", err)
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook amount %q: %w", payload.Amount, err)
	}

	return &WebhookEvent{
		Provider:   c.Name(),
		EventType:  payload.EventType,
		Reference:  payload.Reference,
		ExternalID: payload.ExternalID,
		Amount:     amount,
		Currency:   payload.Currency,
		Reason:     payload.Reason,
	}, nil
}
