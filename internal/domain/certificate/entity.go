// Package certificate содержит доменную модель сертификата о прохождении курса.
//
// Сертификат - терминальный артефакт: выдаётся ровно один раз на пару
// (студент, курс). Уникальный индекс в хранилище - последний рубеж против
// конкурентной двойной выдачи.
package certificate

import (
	"errors"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyID - пустой идентификатор сертификата.
	ErrEmptyID = errors.New("certificate: id cannot be empty")

	// ErrEmptyStudentID - пустой идентификатор студента.
	ErrEmptyStudentID = errors.New("certificate: student id cannot be empty")

	// ErrEmptyCourseID - пустой идентификатор курса.
	ErrEmptyCourseID = errors.New("certificate: course id cannot be empty")

	// ErrEmptyTitle - пустое название курса.
	ErrEmptyTitle = errors.New("certificate: title cannot be empty")

	// ErrInvalidScore - итоговая оценка вне диапазона 0-100.
	ErrInvalidScore = errors.New("certificate: score must be between 0 and 100")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: CERTIFICATE
// ══════════════════════════════════════════════════════════════════════════════

// Certificate - подтверждение завершения курса студентом.
type Certificate struct {
	// ID - уникальный идентификатор (UUID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// CourseID - идентификатор курса.
	CourseID string

	// Title - название курса на момент выдачи.
	Title string

	// Number - человекочитаемый серийный номер, печатается на сертификате.
	Number shared.CertificateNumber

	// IssueDate - дата выдачи.
	IssueDate time.Time

	// Score - итоговая оценка 0-100 (nil, если не выставлялась).
	Score *int

	// Feedback - отзыв преподавателя (опционально).
	Feedback string
}

// NewCertificateParams содержит параметры выдачи сертификата.
type NewCertificateParams struct {
	ID        string
	StudentID string
	CourseID  string
	Title     string
	Number    shared.CertificateNumber
	IssueDate time.Time
	Score     *int
	Feedback  string
}

// NewCertificate создаёт сертификат с валидацией всех полей.
func NewCertificate(params NewCertificateParams) (*Certificate, error) {
	if params.ID == "" {
		return nil, ErrEmptyID
	}
	if params.StudentID == "" {
		return nil, ErrEmptyStudentID
	}
	if params.CourseID == "" {
		return nil, ErrEmptyCourseID
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if !params.Number.IsValid() {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrInvalidFormat, "invalid certificate number")
	}
	if params.Score != nil && (*params.Score < 0 || *params.Score > 100) {
		return nil, ErrInvalidScore
	}

	issueDate := params.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now().UTC()
	}

	return &Certificate{
		ID:        params.ID,
		StudentID: params.StudentID,
		CourseID:  params.CourseID,
		Title:     strings.TrimSpace(params.Title),
		Number:    params.Number,
		IssueDate: issueDate.UTC(),
		Score:     params.Score,
		Feedback:  params.Feedback,
	}, nil
}
