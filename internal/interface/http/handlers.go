package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lingua-hub/lingua-school-backend/internal/application/command"
	"github.com/lingua-hub/lingua-school-backend/internal/application/query"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/pkg/logger"
)

// validate is shared across handlers; validator instances cache struct metadata.
var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

type registerStudentRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

type registerStudentResponse struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
}

type studentStatusRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type studentStatusResponse struct {
	StudentID string `json:"student_id"`
	Active    bool   `json:"active"`
	Changed   bool   `json:"changed"`
}

type enrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	CourseID  string `json:"course_id" validate:"required"`
}

type moneyResponse struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

type enrollStudentResponse struct {
	EnrollmentID string        `json:"enrollment_id"`
	Status       string        `json:"status"`
	Price        moneyResponse `json:"price"`
}

type cardRequest struct {
	Number      string `json:"number" validate:"required,min=12,max=19"`
	HolderName  string `json:"holder_name" validate:"required"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,min=2020,max=2100"`
	CVC         string `json:"cvc" validate:"required,min=3,max=4"`
}

type processPaymentRequest struct {
	AmountCents int64       `json:"amount_cents" validate:"required,gt=0"`
	Currency    string      `json:"currency" validate:"required,len=3"`
	Card        cardRequest `json:"card" validate:"required"`
}

type processPaymentResponse struct {
	PaymentID        string `json:"payment_id"`
	Succeeded        bool   `json:"succeeded"`
	TransactionID    string `json:"transaction_id,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
	EnrollmentStatus string `json:"enrollment_status"`
}

type cancelEnrollmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type cancelEnrollmentResponse struct {
	EnrollmentID string `json:"enrollment_id"`
	Status       string `json:"status"`
}

type refundPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type refundPaymentResponse struct {
	PaymentID           string `json:"payment_id"`
	RefundID            string `json:"refund_id"`
	EnrollmentCancelled bool   `json:"enrollment_cancelled"`
}

type completeLessonResponse struct {
	AlreadyCompleted bool `json:"already_completed"`
	CompletedCount   int  `json:"completed_count"`
	TotalCount       int  `json:"total_count"`
	CourseCompleted  bool `json:"course_completed"`
}

type completeCourseResponse struct {
	EnrollmentID   string    `json:"enrollment_id"`
	Status         string    `json:"status"`
	CompletionDate time.Time `json:"completion_date"`
}

type issueCertificateRequest struct {
	Score    *int   `json:"score" validate:"omitempty,min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=1000"`
}

type issueCertificateResponse struct {
	CertificateID string    `json:"certificate_id"`
	Number        string    `json:"number"`
	IssueDate     time.Time `json:"issue_date"`
	AlreadyIssued bool      `json:"already_issued"`
}

type courseProgressResponse struct {
	CourseID         string    `json:"course_id"`
	EnrollmentID     string    `json:"enrollment_id"`
	EnrollmentStatus string    `json:"enrollment_status"`
	CompletedLessons int       `json:"completed_lessons"`
	TotalLessons     int       `json:"total_lessons"`
	IsCompleted      bool      `json:"is_completed"`
	LastActivity     time.Time `json:"last_activity"`
}

type studentProgressResponse struct {
	StudentID   string                   `json:"student_id"`
	DisplayName string                   `json:"display_name"`
	Courses     []courseProgressResponse `json:"courses"`
}

type certificateResponse struct {
	CertificateID string    `json:"certificate_id"`
	CourseID      string    `json:"course_id"`
	Title         string    `json:"title"`
	Number        string    `json:"number"`
	IssueDate     time.Time `json:"issue_date"`
	Score         *int      `json:"score,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
}

type studentCertificatesResponse struct {
	StudentID    string                `json:"student_id"`
	Certificates []certificateResponse `json:"certificates"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerStudentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterStudent.Handle(r.Context(), command.RegisterStudentCommand{
		Email:         req.Email,
		DisplayName:   req.DisplayName,
		Password:      req.Password,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerStudentResponse{
		StudentID: result.StudentID,
		Email:     result.Email,
	})
}

func (s *Server) handleActivateStudent(w http.ResponseWriter, r *http.Request) {
	s.handleSetStudentStatus(w, r, true)
}

func (s *Server) handleDeactivateStudent(w http.ResponseWriter, r *http.Request) {
	s.handleSetStudentStatus(w, r, false)
}

func (s *Server) handleSetStudentStatus(w http.ResponseWriter, r *http.Request, active bool) {
	var req studentStatusRequest
	if !s.decodeOptionalAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.SetStudentStatus.Handle(r.Context(), command.SetStudentStatusCommand{
		StudentID:     chi.URLParam(r, "studentID"),
		Active:        active,
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, studentStatusResponse{
		StudentID: result.StudentID,
		Active:    result.Active,
		Changed:   result.Changed,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT & PAYMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req enrollStudentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.EnrollStudent.Handle(r.Context(), command.EnrollStudentCommand{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, enrollStudentResponse{
		EnrollmentID: result.EnrollmentID,
		Status:       string(result.Status),
		Price: moneyResponse{
			Cents:    result.Price.Cents,
			Currency: result.Price.Currency,
		},
	})
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.ProcessPayment.Handle(r.Context(), command.ProcessPaymentCommand{
		EnrollmentID: chi.URLParam(r, "enrollmentID"),
		Card: payment.Card{
			Number:      req.Card.Number,
			HolderName:  req.Card.HolderName,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVC:         req.Card.CVC,
		},
		AmountCents:   req.AmountCents,
		Currency:      strings.ToUpper(req.Currency),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := processPaymentResponse{
		PaymentID:        result.PaymentID,
		Succeeded:        result.Succeeded,
		TransactionID:    result.TransactionID,
		FailureReason:    result.FailureReason,
		EnrollmentStatus: string(result.EnrollmentStatus),
	}

	// A declined charge is persisted, so the response carries the payment
	// record even though the status is an error.
	if !result.Succeeded {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	var req cancelEnrollmentRequest
	if !s.decodeOptionalAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.CancelEnrollment.Handle(r.Context(), command.CancelEnrollmentCommand{
		EnrollmentID:  chi.URLParam(r, "enrollmentID"),
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelEnrollmentResponse{
		EnrollmentID: result.EnrollmentID,
		Status:       string(result.Status),
	})
}

func (s *Server) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if !s.decodeOptionalAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.RefundPayment.Handle(r.Context(), command.RefundPaymentCommand{
		PaymentID:     chi.URLParam(r, "paymentID"),
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refundPaymentResponse{
		PaymentID:           result.PaymentID,
		RefundID:            result.RefundID,
		EnrollmentCancelled: result.EnrollmentCancelled,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & CERTIFICATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CompleteLesson.Handle(r.Context(), command.CompleteLessonCommand{
		StudentID:     chi.URLParam(r, "studentID"),
		CourseID:      chi.URLParam(r, "courseID"),
		LessonID:      chi.URLParam(r, "lessonID"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completeLessonResponse{
		AlreadyCompleted: result.AlreadyCompleted,
		CompletedCount:   result.CompletedCount,
		TotalCount:       result.TotalCount,
		CourseCompleted:  result.CourseCompleted,
	})
}

func (s *Server) handleCompleteCourse(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CompleteCourse.Handle(r.Context(), command.CompleteCourseCommand{
		StudentID:     chi.URLParam(r, "studentID"),
		CourseID:      chi.URLParam(r, "courseID"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completeCourseResponse{
		EnrollmentID:   result.EnrollmentID,
		Status:         string(result.Status),
		CompletionDate: result.CompletionDate,
	})
}

func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueCertificateRequest
	if !s.decodeOptionalAndValidate(w, r, &req) {
		return
	}

	result, err := s.deps.IssueCertificate.Handle(r.Context(), command.IssueCertificateCommand{
		StudentID:     chi.URLParam(r, "studentID"),
		CourseID:      chi.URLParam(r, "courseID"),
		Score:         req.Score,
		Feedback:      req.Feedback,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyIssued {
		status = http.StatusOK
	}

	writeJSON(w, status, issueCertificateResponse{
		CertificateID: result.CertificateID,
		Number:        result.Number.String(),
		IssueDate:     result.IssueDate,
		AlreadyIssued: result.AlreadyIssued,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStudentProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetStudentProgress.Handle(r.Context(), query.GetStudentProgressQuery{
		StudentID: chi.URLParam(r, "studentID"),
		CourseID:  r.URL.Query().Get("course_id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	courses := make([]courseProgressResponse, 0, len(view.Courses))
	for _, c := range view.Courses {
		courses = append(courses, courseProgressResponse{
			CourseID:         c.CourseID,
			EnrollmentID:     c.EnrollmentID,
			EnrollmentStatus: string(c.EnrollmentStatus),
			CompletedLessons: c.CompletedLessons,
			TotalLessons:     c.TotalLessons,
			IsCompleted:      c.IsCompleted,
			LastActivity:     c.LastActivity,
		})
	}

	writeJSON(w, http.StatusOK, studentProgressResponse{
		StudentID:   view.StudentID,
		DisplayName: view.DisplayName,
		Courses:     courses,
	})
}

func (s *Server) handleGetStudentCertificates(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetStudentCertificates.Handle(r.Context(), query.GetStudentCertificatesQuery{
		StudentID: chi.URLParam(r, "studentID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	certs := make([]certificateResponse, 0, len(view.Certificates))
	for _, c := range view.Certificates {
		certs = append(certs, certificateResponse{
			CertificateID: c.CertificateID,
			CourseID:      c.CourseID,
			Title:         c.Title,
			Number:        c.Number,
			IssueDate:     c.IssueDate,
			Score:         c.Score,
			Feedback:      c.Feedback,
		})
	}

	writeJSON(w, http.StatusOK, studentCertificatesResponse{
		StudentID:    view.StudentID,
		Certificates: certs,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())

	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Service is not ready")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// Liveness only confirms the process responds.
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"service": "lingua-school-backend",
		"version": "v1",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeAndValidate decodes the JSON body into dst and validates it. The body
// is required. Returns false if a response has already been written.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request_body", "Request body is not valid JSON", err.Error())
		return false
	}

	return s.validateRequest(w, dst)
}

// decodeOptionalAndValidate is decodeAndValidate for endpoints whose body may
// be empty (cancel, refund, status changes).
func (s *Server) decodeOptionalAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request_body", "Request body is not valid JSON", err.Error())
		return false
	}

	return s.validateRequest(w, dst)
}

func (s *Server) validateRequest(w http.ResponseWriter, dst interface{}) bool {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "Request validation failed", formatValidationErrors(verrs))
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "validation_failed", "Request validation failed")
		return false
	}
	return true
}

// formatValidationErrors renders validator errors as a readable field list.
func formatValidationErrors(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": failed on '"+fe.Tag()+"'")
	}
	return strings.Join(parts, "; ")
}

// writeDomainError maps domain errors to HTTP status codes.
//
// Not-found errors become 404. Payment-domain conflicts (double refund) and
// gateway failures become 422, so clients can distinguish "the money side
// refused" from malformed input. All other domain rule violations are 400.
// Infrastructure unavailability surfaces as 503.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := getRequestID(r.Context())

	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", domainMessage(err))

	case errors.Is(err, shared.ErrAlreadyRefunded):
		writeJSONError(w, http.StatusUnprocessableEntity, "already_refunded", domainMessage(err))

	case shared.IsGatewayError(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "payment_rejected", domainMessage(err))

	case shared.IsValidationError(err),
		shared.IsInvalidState(err),
		shared.IsConflict(err),
		shared.IsPrecondition(err):
		writeJSONError(w, http.StatusBadRequest, "domain_rule_violation", domainMessage(err))

	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		s.logger.Warn("dependency unavailable",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", requestID),
		)
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "A required dependency is unavailable, please retry")

	default:
		s.logger.Error("unhandled domain error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", requestID),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// domainMessage extracts the human message from a domain error chain.
func domainMessage(err error) string {
	var derr *shared.DomainError
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return err.Error()
}
