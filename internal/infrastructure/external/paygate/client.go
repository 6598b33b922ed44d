// Package paygate implements the HTTP client for the external payment
// gateway. Charges and refunds go through this client; a declined charge is a
// normal gateway answer and is returned as a result, not as an error.
package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/pkg/circuitbreaker"
	"github.com/lingua-hub/lingua-school-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the payment gateway client.
type ClientConfig struct {
	// BaseURL is the gateway API base URL
	BaseURL string

	// APIKey authenticates this merchant with the gateway
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

type chargeRequestDTO struct {
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Card        cardDTO `json:"card"`
}

type cardDTO struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVC         string `json:"cvc"`
}

type chargeResponseDTO struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	DeclineReason string `json:"decline_reason"`
}

type refundRequestDTO struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

type refundResponseDTO struct {
	Status   string `json:"status"`
	RefundID string `json:"refund_id"`
	Reason   string `json:"reason"`
}

// Gateway charge statuses.
const (
	statusSucceeded = "succeeded"
	statusDeclined  = "declined"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the payment gateway API client. It implements payment.Gateway.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

var _ payment.Gateway = (*Client)(nil)

// NewClient creates a new payment gateway client.
func NewClient(config ClientConfig) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "paygate")

	breaker := circuitbreaker.PaymentGatewayBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.GatewayRetrier(),
		breaker: breaker,
	}
}

// Charge performs a charge. The payment ID travels as the gateway idempotency
// key, so a retried request charges the card at most once.
func (c *Client) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	body := chargeRequestDTO{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Card: cardDTO{
			Number:      req.Card.Number,
			HolderName:  req.Card.HolderName,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVC:         req.Card.CVC,
		},
	}

	var dto chargeResponseDTO
	err := c.call(ctx, http.MethodPost, "/api/v1/charges", req.PaymentID, body, &dto)
	if err != nil {
		return nil, c.mapTransportError(err, "Charge")
	}

	switch dto.Status {
	case statusSucceeded:
		if dto.TransactionID == "" {
			return nil, shared.WrapError("paygate", "Charge", shared.ErrInvalidFormat,
				"gateway confirmed charge without transaction id", nil)
		}
		return &payment.ChargeResult{
			Success:       true,
			TransactionID: dto.TransactionID,
		}, nil

	case statusDeclined:
		return &payment.ChargeResult{
			Success:       false,
			DeclineReason: dto.DeclineReason,
		}, nil

	default:
		return nil, shared.WrapError("paygate", "Charge", shared.ErrInvalidFormat,
			fmt.Sprintf("unknown charge status %q", dto.Status), nil)
	}
}

// Refund refunds a charge by its gateway transaction ID.
func (c *Client) Refund(ctx context.Context, transactionID string, amountCents int64, currency string) (*payment.RefundResult, error) {
	body := refundRequestDTO{
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Currency:      currency,
	}

	// The transaction ID keys refund idempotency: the school refunds a
	// payment in full exactly once.
	var dto refundResponseDTO
	err := c.call(ctx, http.MethodPost, "/api/v1/refunds", "refund-"+transactionID, body, &dto)
	if err != nil {
		return nil, c.mapTransportError(err, "Refund")
	}

	return &payment.RefundResult{
		Success:  dto.Status == statusSucceeded,
		RefundID: dto.RefundID,
		Reason:   dto.Reason,
	}, nil
}

// IsHealthy checks if the gateway is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// call performs an HTTP call through the circuit breaker with retries.
// Only transport-level failures are retried; a parsed gateway answer (even a
// decline) terminates the loop.
func (c *Client) call(ctx context.Context, method, path, idempotencyKey string, body, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.doSingleRequest(ctx, method, path, idempotencyKey, body, result)
			if err == nil {
				return nil
			}
			if isRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path, idempotencyKey string, body, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("gateway rejected request %s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("gateway rejected request: status %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	if strings.Contains(errStr, "gateway error: status") {
		return true
	}
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// mapTransportError maps client failures to the shared gateway errors the
// command layer understands.
func (c *Client) mapTransportError(err error, op string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return shared.WrapError("paygate", op, shared.ErrTimeout, "payment gateway request timeout", err)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return shared.WrapError("paygate", op, shared.ErrServiceUnavailable, "payment gateway circuit open", err)
	default:
		return shared.WrapError("paygate", op, shared.ErrServiceUnavailable, "payment gateway is unavailable", err)
	}
}
