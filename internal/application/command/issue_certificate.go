package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/certificate"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATE COMMAND
// Issues the completion certificate for a finished course. At most one
// certificate per (student, course); the unique index in storage settles
// concurrent double issuance.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateCommand contains the data to issue a certificate.
type IssueCertificateCommand struct {
	// StudentID is the student receiving the certificate.
	StudentID string

	// CourseID is the completed course.
	CourseID string

	// Score is the optional final score (0-100).
	Score *int

	// Feedback is the optional instructor feedback.
	Feedback string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueCertificateCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("issue_certificate: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("issue_certificate: course_id is required")
	}
	if c.Score != nil && (*c.Score < 0 || *c.Score > 100) {
		return errors.New("issue_certificate: score must be between 0 and 100")
	}
	return nil
}

// IssueCertificateResult contains the issued certificate data.
type IssueCertificateResult struct {
	// CertificateID is the ID of the certificate.
	CertificateID string

	// Number is the human-facing serial number.
	Number shared.CertificateNumber

	// IssueDate is when the certificate was issued.
	IssueDate time.Time

	// AlreadyIssued is true when a certificate for this (student, course)
	// existed before the call. The existing certificate is returned.
	AlreadyIssued bool
}

// IssueCertificateHandler handles the IssueCertificateCommand.
type IssueCertificateHandler struct {
	enrollmentRepo  enrollment.Repository
	certificateRepo certificate.Repository
	catalog         course.Catalog
	eventPublisher  shared.EventPublisher
	newID           func() string
	now             func() time.Time
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	enrollmentRepo enrollment.Repository,
	certificateRepo certificate.Repository,
	catalog course.Catalog,
	eventPublisher shared.EventPublisher,
	newID func() string,
) *IssueCertificateHandler {
	return &IssueCertificateHandler{
		enrollmentRepo:  enrollmentRepo,
		certificateRepo: certificateRepo,
		catalog:         catalog,
		eventPublisher:  eventPublisher,
		newID:           newID,
		now:             time.Now,
	}
}

// Handle executes the issue certificate command.
func (h *IssueCertificateHandler) Handle(ctx context.Context, cmd IssueCertificateCommand) (*IssueCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("certificate", "Issue", shared.ErrInvalidInput, "validation failed", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	if enr.Status != enrollment.StatusCompleted {
		return nil, shared.ErrCourseNotCompleted
	}

	if existing, err := h.certificateRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID); err == nil {
		return &IssueCertificateResult{
			CertificateID: existing.ID,
			Number:        existing.Number,
			IssueDate:     existing.IssueDate,
			AlreadyIssued: true,
		}, nil
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	crs, err := h.catalog.GetCourse(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	id := h.newID()
	issuedAt := h.now().UTC()
	// The stored timestamp is UTC; the serial year follows the school's wall
	// clock, so a certificate issued on New Year's Eve UTC carries the year
	// the student sees.
	number, err := shared.NewCertificateNumber(timeutil.ToLocal(issuedAt).Year(), certificateSuffix(id))
	if err != nil {
		return nil, err
	}

	cert, err := certificate.NewCertificate(certificate.NewCertificateParams{
		ID:        id,
		StudentID: cmd.StudentID,
		CourseID:  cmd.CourseID,
		Title:     crs.Title,
		Number:    number,
		IssueDate: issuedAt,
		Score:     cmd.Score,
		Feedback:  cmd.Feedback,
	})
	if err != nil {
		return nil, err
	}

	if err := h.certificateRepo.Create(ctx, cert); err != nil {
		// A concurrent issuer won the unique index race. Return its
		// certificate instead of failing.
		if errors.Is(err, shared.ErrCertificateExists) {
			existing, getErr := h.certificateRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID)
			if getErr != nil {
				return nil, getErr
			}
			return &IssueCertificateResult{
				CertificateID: existing.ID,
				Number:        existing.Number,
				IssueDate:     existing.IssueDate,
				AlreadyIssued: true,
			}, nil
		}
		return nil, err
	}

	event := shared.NewCertificateIssuedEvent(cert.ID, cert.StudentID, cert.CourseID, cert.Number.String())
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	return &IssueCertificateResult{
		CertificateID: cert.ID,
		Number:        cert.Number,
		IssueDate:     cert.IssueDate,
	}, nil
}

// certificateSuffix derives the 8-hex-digit serial suffix from a UUID by
// taking its first block.
func certificateSuffix(id string) string {
	s := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
