package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog API base URL
	BaseURL string

	// APIKey is the API key for authentication (if applicable)
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance
	CircuitBreakerConfig CircuitBreakerConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:              baseURL,
		Timeout:              30 * time.Second,
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		RetryConfig:          DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// errNotFound marks a 404 response; callers map it to the entity-specific
// domain error.
var errNotFound = errors.New("catalog: not found")

// Client is the course catalog API client. It implements course.Catalog.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

var _ course.Catalog = (*Client)(nil)

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         config.Logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetCourse fetches a single course by ID.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*course.Course, error) {
	path := fmt.Sprintf("/api/v1/courses/%s", url.PathEscape(courseID))

	var dto CourseDTO
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &dto); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, c.asUnavailable(err, "get course "+courseID)
	}

	return toDomainCourse(dto)
}

// GetLessonCount fetches the current lesson count of a course. A dedicated
// endpoint is used so completion checks get a fresh total without the full
// course payload.
func (c *Client) GetLessonCount(ctx context.Context, courseID string) (int, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/lesson-count", url.PathEscape(courseID))

	var dto LessonCountDTO
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &dto); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, shared.ErrCourseNotFound
		}
		return 0, c.asUnavailable(err, "get lesson count "+courseID)
	}

	if dto.LessonCount < 0 {
		return 0, shared.ErrCatalogInvalidPayload
	}

	return dto.LessonCount, nil
}

// GetLesson fetches a single lesson by ID.
func (c *Client) GetLesson(ctx context.Context, lessonID string) (*course.Lesson, error) {
	path := fmt.Sprintf("/api/v1/lessons/%s", url.PathEscape(lessonID))

	var dto LessonDTO
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &dto); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, c.asUnavailable(err, "get lesson "+lessonID)
	}

	return toDomainLesson(dto)
}

// asUnavailable maps transport failures to shared.ErrCatalogUnavailable while
// keeping payload errors as-is.
func (c *Client) asUnavailable(err error, op string) error {
	if errors.Is(err, shared.ErrCatalogInvalidPayload) {
		return err
	}

	c.logger.Warn("catalog unavailable", "op", op, "error", err)
	return shared.WrapError("course", "Request", shared.ErrServiceUnavailable, "course catalog request failed", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	// Check circuit breaker
	if err := c.circuitBreaker.Allow(); err != nil {
		return fmt.Errorf("circuit breaker: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Wait for rate limiter
		if err := c.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.doSingleRequest(ctx, method, path, body, result)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return nil
		}

		// A 404 is a definitive answer, not a failure of the catalog.
		if errors.Is(err, errNotFound) {
			c.circuitBreaker.RecordSuccess()
			return err
		}

		lastErr = err

		// Check if error is retryable
		if !c.isRetryable(err) {
			c.circuitBreaker.RecordFailure()
			return err
		}

		// Handle rate limit response
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
		}
	}

	c.circuitBreaker.RecordFailure()
	return fmt.Errorf("request failed after %d retries: %w", c.config.RetryConfig.MaxRetries, lastErr)
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("catalog api request", "method", method, "path", path)
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

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.Code = normalizeErrorCode(apiErr.Code, resp.StatusCode)
			return &apiErr
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrCatalogInvalidPayload, err)
		}
	}

	return nil
}

// normalizeErrorCode backfills a code for catalogs that return only a message.
func normalizeErrorCode(code string, status int) string {
	if code != "" {
		return code
	}
	if status >= 500 {
		return "SERVER_ERROR"
	}
	return "CLIENT_ERROR"
}

// isRetryable checks if an error is retryable.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Rate limit errors are retryable
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// API errors - check status code
	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		// Server errors are retryable
		return apiErr.Code == "SERVER_ERROR" || apiErr.Code == "TEMPORARILY_UNAVAILABLE"
	}

	// A broken payload will not fix itself on retry.
	if errors.Is(err, shared.ErrCatalogInvalidPayload) {
		return false
	}

	// Network errors are generally retryable
	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the catalog API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
