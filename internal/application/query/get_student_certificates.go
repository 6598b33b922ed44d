package query

import (
	"context"
	"errors"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/certificate"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT CERTIFICATES QUERY
// Список сертификатов студента, от новых к старым.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentCertificatesQuery содержит параметры запроса сертификатов.
type GetStudentCertificatesQuery struct {
	// StudentID - внутренний ID студента.
	StudentID string
}

// Validate проверяет корректность параметров.
func (q *GetStudentCertificatesQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// CertificateView - сертификат для read-стороны.
type CertificateView struct {
	// CertificateID - идентификатор сертификата.
	CertificateID string

	// CourseID - идентификатор курса.
	CourseID string

	// Title - название курса на момент выдачи.
	Title string

	// Number - серийный номер сертификата.
	Number string

	// IssueDate - дата выдачи.
	IssueDate time.Time

	// Score - итоговая оценка (nil, если не выставлялась).
	Score *int

	// Feedback - отзыв преподавателя.
	Feedback string
}

// StudentCertificatesView - сертификаты студента.
type StudentCertificatesView struct {
	// StudentID - идентификатор студента.
	StudentID string

	// Certificates - сертификаты, от новых к старым.
	Certificates []CertificateView
}

// GetStudentCertificatesHandler обрабатывает запрос сертификатов.
type GetStudentCertificatesHandler struct {
	studentRepo     student.Repository
	certificateRepo certificate.Repository
}

// NewGetStudentCertificatesHandler создаёт обработчик запроса сертификатов.
func NewGetStudentCertificatesHandler(
	studentRepo student.Repository,
	certificateRepo certificate.Repository,
) *GetStudentCertificatesHandler {
	return &GetStudentCertificatesHandler{
		studentRepo:     studentRepo,
		certificateRepo: certificateRepo,
	}
}

// Handle выполняет запрос сертификатов студента.
func (h *GetStudentCertificatesHandler) Handle(ctx context.Context, q GetStudentCertificatesQuery) (*StudentCertificatesView, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("certificate", "GetStudentCertificates", shared.ErrInvalidInput, "validation failed", err)
	}

	stud, err := h.studentRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	certs, err := h.certificateRepo.ListByStudent(ctx, stud.ID)
	if err != nil {
		return nil, err
	}

	view := &StudentCertificatesView{
		StudentID:    stud.ID,
		Certificates: make([]CertificateView, 0, len(certs)),
	}
	for _, c := range certs {
		view.Certificates = append(view.Certificates, CertificateView{
			CertificateID: c.ID,
			CourseID:      c.CourseID,
			Title:         c.Title,
			Number:        c.Number.String(),
			IssueDate:     c.IssueDate,
			Score:         c.Score,
			Feedback:      c.Feedback,
		})
	}

	return view, nil
}
