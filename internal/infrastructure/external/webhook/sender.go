// Package webhook implements the notification delivery channel.
// Notifications are posted as JSON to a configured webhook endpoint
// (email dispatcher, analytics collector). Delivery is best effort; the
// caller decides what to do with a failed send.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/pkg/circuitbreaker"
	"github.com/lingua-hub/lingua-school-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// SenderConfig contains configuration for the webhook sender.
type SenderConfig struct {
	// URL is the webhook endpoint notifications are posted to
	URL string

	// Secret is sent in the X-Webhook-Secret header for endpoint auth
	Secret string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultSenderConfig returns sensible defaults.
func DefaultSenderConfig(url, secret string) SenderConfig {
	return SenderConfig{
		URL:     url,
		Secret:  secret,
		Timeout: 10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDER
// ══════════════════════════════════════════════════════════════════════════════

// payloadDTO is the wire format of a delivered notification.
type payloadDTO struct {
	Type        string            `json:"type"`
	RecipientID string            `json:"recipient_id"`
	Subject     string            `json:"subject"`
	Data        map[string]string `json:"data"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Sender posts notifications to a webhook endpoint. It implements
// notification.Sender.
type Sender struct {
	config     SenderConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

var _ notification.Sender = (*Sender)(nil)

// NewSender creates a new webhook sender.
func NewSender(config SenderConfig) *Sender {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webhook")

	breaker := circuitbreaker.WebhookBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.WebhookRetrier(),
		breaker: breaker,
	}
}

// Send delivers a notification to the webhook endpoint.
func (s *Sender) Send(ctx context.Context, msg *notification.Message) error {
	payload := payloadDTO{
		Type:        msg.Type.String(),
		RecipientID: msg.RecipientID,
		Subject:     msg.Subject,
		Data:        msg.Data,
		CreatedAt:   msg.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			err := s.post(ctx, body)
			if err == nil {
				return nil
			}
			if isRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
	if err != nil {
		return fmt.Errorf("deliver %s notification: %w", msg.Type, err)
	}

	s.logger.Debug("notification delivered",
		"type", msg.Type.String(), "recipient_id", msg.RecipientID)

	return nil
}

// post performs a single delivery attempt.
func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.config.Secret != "" {
		req.Header.Set("X-Webhook-Secret", s.config.Secret)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("webhook error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook rejected notification: status %d", resp.StatusCode)
	}

	return nil
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	if strings.Contains(errStr, "webhook error: status") {
		return true
	}
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
