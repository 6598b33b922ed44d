package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// testClient builds a client against the given test server with retries and
// backoff tuned down so failure paths finish instantly.
func testClient(serverURL string) *Client {
	config := DefaultClientConfig(serverURL)
	config.Timeout = 2 * time.Second
	config.RetryConfig.MaxRetries = 1
	config.RetryConfig.InitialBackoff = time.Millisecond
	config.RateLimiterConfig.MinInterval = 0
	return NewClient(config)
}

func TestGetCourse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/course-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"course-1","title":"Kazakh A1","lesson_count":24,"price_cents":14900,"currency":"EUR"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	crs, err := client.GetCourse(context.Background(), "course-1")
	require.NoError(t, err)

	assert.Equal(t, "course-1", crs.ID)
	assert.Equal(t, "Kazakh A1", crs.Title)
	assert.Equal(t, 24, crs.LessonCount)
	assert.Equal(t, int64(14900), crs.PriceCents)
	assert.Equal(t, "EUR", crs.Currency)
}

func TestGetCourse_SendsAPIKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"course-1","title":"Kazakh A1","lesson_count":24,"price_cents":14900,"currency":"EUR"}`))
	}))
	defer server.Close()

	config := DefaultClientConfig(server.URL)
	config.APIKey = "secret-key"
	config.RateLimiterConfig.MinInterval = 0
	client := NewClient(config)

	_, err := client.GetCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestGetCourse_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.GetCourse(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

func TestGetCourse_InvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing title and a bogus currency.
		w.Write([]byte(`{"id":"course-1","currency":"EURO"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.GetCourse(context.Background(), "course-1")
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidPayload)
}

func TestGetCourse_ServerErrorBecomesUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"SERVER_ERROR","message":"boom"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.GetCourse(context.Background(), "course-1")
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
}

func TestGetLessonCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/course-1/lesson-count", r.URL.Path)
		w.Write([]byte(`{"course_id":"course-1","lesson_count":24}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	count, err := client.GetLessonCount(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 24, count)
}

func TestGetLessonCount_NegativeCountRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"course_id":"course-1","lesson_count":-1}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.GetLessonCount(context.Background(), "course-1")
	assert.ErrorIs(t, err, shared.ErrCatalogInvalidPayload)
}

func TestGetLesson(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lessons/l1", r.URL.Path)
		w.Write([]byte(`{"id":"l1","course_id":"course-1","title":"Сәлемдесу"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	lesson, err := client.GetLesson(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, "course-1", lesson.CourseID)
	assert.Equal(t, "Сәлемдесу", lesson.Title)
}

func TestGetLesson_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.GetLesson(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"code":"SERVER_ERROR","message":"boom"}`))
			return
		}
		w.Write([]byte(`{"id":"course-1","title":"Kazakh A1","lesson_count":24,"price_cents":14900,"currency":"EUR"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	crs, err := client.GetCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "course-1", crs.ID)
	assert.Equal(t, 2, attempts)
}

func TestIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)
	assert.True(t, client.IsHealthy(context.Background()))

	server.Close()
	assert.False(t, client.IsHealthy(context.Background()))
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"SERVER_ERROR","message":"boom"}`))
	}))
	defer server.Close()

	config := DefaultClientConfig(server.URL)
	config.RetryConfig.MaxRetries = 0
	config.RateLimiterConfig.MinInterval = 0
	config.CircuitBreakerConfig.FailureThreshold = 2
	client := NewClient(config)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.GetCourse(ctx, "course-1")
		require.Error(t, err)
	}

	// The breaker is open now: the request fails without reaching the server.
	_, err := client.GetCourse(ctx, "course-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}
