package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/application/command"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
	"github.com/lingua-hub/lingua-school-backend/internal/interface/http/handlers"
)

// ─── test doubles ────────────────────────────────────────────────────────────

type noopPublisher struct{}

func (noopPublisher) Publish(shared.Event) error { return nil }

type stubStudentRepo struct {
	students map[string]*student.Student
}

func newStubStudentRepo() *stubStudentRepo {
	return &stubStudentRepo{students: make(map[string]*student.Student)}
}

func (r *stubStudentRepo) Create(_ context.Context, s *student.Student) error {
	for _, existing := range r.students {
		if existing.Email.String() == s.Email.String() {
			return shared.ErrStudentAlreadyExists
		}
	}
	r.students[s.ID] = s
	return nil
}

func (r *stubStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s, nil
}

func (r *stubStudentRepo) GetByEmail(_ context.Context, email shared.Email) (*student.Student, error) {
	for _, s := range r.students {
		if s.Email.String() == email.String() {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *stubStudentRepo) Update(_ context.Context, s *student.Student) error {
	if _, ok := r.students[s.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	r.students[s.ID] = s
	return nil
}

func testIDGen() func() string {
	n := 0
	return func() string {
		n++
		return []string{"stud-1", "stud-2", "stud-3"}[(n-1)%3]
	}
}

// testServer wires a server with just enough dependencies for routing tests.
func testServer(apiKeys ...string) *Server {
	config := DefaultConfig()
	config.APIKeys = apiKeys

	return NewServer(config, Dependencies{
		RegisterStudent: command.NewRegisterStudentHandler(newStubStudentRepo(), noopPublisher{}, testIDGen()),
		HealthChecker:   handlers.NewNoopHealthChecker(),
	})
}

func doRequest(t *testing.T, s *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// ─── tests ───────────────────────────────────────────────────────────────────

func TestHealthEndpoints(t *testing.T) {
	s := testServer()

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), path)
	}
}

func TestRootEndpoint(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestRegisterStudent_HTTP(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/students",
		`{"email":"aigerim@example.com","display_name":"Aigerim","password":"correct horse"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                    `json:"success"`
		Data    registerStudentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "stud-1", resp.Data.StudentID)
	assert.Equal(t, "aigerim@example.com", resp.Data.Email)
}

func TestRegisterStudent_HTTP_DuplicateEmail(t *testing.T) {
	s := testServer()
	body := `{"email":"aigerim@example.com","display_name":"Aigerim","password":"correct horse"}`

	rec := doRequest(t, s, http.MethodPost, "/api/v1/students", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/students", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "domain_rule_violation", resp.Error.Code)
}

func TestRegisterStudent_HTTP_ValidationFailed(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/students",
		`{"email":"not-an-email","display_name":"Aigerim","password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_failed", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "Email")
	assert.Contains(t, resp.Error.Details, "Password")
}

func TestRegisterStudent_HTTP_MalformedBody(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/students", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_request_body", resp.Error.Code)
}

func TestEnrollStudent_HTTP_RejectsBadStudentID(t *testing.T) {
	// Validation fires before the command handler, so the nil handler in the
	// dependency set is never reached.
	s := testServer()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/enrollments",
		`{"student_id":"not-a-uuid","course_id":"course-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpointsRequireAPIKey(t *testing.T) {
	s := testServer("admin-key")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/payments/pay-1/refund", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	header := http.Header{}
	header.Set("X-API-Key", "wrong-key")
	rec = doRequest(t, s, http.MethodPost, "/api/v1/payments/pay-1/refund", `{}`, header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodGet, "/no/such/route", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := testServer()

	rec := doRequest(t, s, http.MethodGet, "/live", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
}
