// Package enrollment содержит доменную модель записи студента на курс.
// Здесь живёт машина состояний жизненного цикла записи:
//
//	PendingPayment → Active → Completed
//	PendingPayment / Active → Cancelled
//
// Completed и Cancelled - терминальные состояния. Запись никогда не
// удаляется физически: отмена - это статус, а не удаление строки.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет текущее состояние записи на курс.
type Status string

const (
	// StatusPendingPayment - запись создана, оплата ещё не подтверждена.
	StatusPendingPayment Status = "pending_payment"

	// StatusActive - оплата прошла, студент учится.
	StatusActive Status = "active"

	// StatusCompleted - все уроки пройдены, курс завершён (терминальное).
	StatusCompleted Status = "completed"

	// StatusCancelled - запись отменена (терминальное).
	StatusCancelled Status = "cancelled"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true для терминальных состояний.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyID - пустой идентификатор записи.
	ErrEmptyID = errors.New("enrollment: id cannot be empty")

	// ErrEmptyStudentID - пустой идентификатор студента.
	ErrEmptyStudentID = errors.New("enrollment: student id cannot be empty")

	// ErrEmptyCourseID - пустой идентификатор курса.
	ErrEmptyCourseID = errors.New("enrollment: course id cannot be empty")

	// ErrNotPendingPayment - активация возможна только из PendingPayment.
	ErrNotPendingPayment = errors.New("enrollment: can only activate from pending_payment")

	// ErrNotActive - завершение возможно только из Active.
	ErrNotActive = errors.New("enrollment: only active enrollments can be completed")

	// ErrTerminalState - запись в терминальном состоянии.
	ErrTerminalState = errors.New("enrollment: already in terminal state")

	// ErrEmptyCancelReason - причина отмены обязательна.
	ErrEmptyCancelReason = errors.New("enrollment: cancel reason cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment - запись студента на курс, главный агрегат машины состояний.
type Enrollment struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// CourseID - идентификатор курса из внешнего каталога (по значению,
	// без навигации в каталог).
	CourseID string

	// Price - стоимость курса на момент записи.
	Price shared.Money

	// Status - текущее состояние машины.
	Status Status

	// EnrollmentDate - время создания записи.
	EnrollmentDate time.Time

	// ActivationDate - время активации (nil, пока не оплачено).
	ActivationDate *time.Time

	// CompletionDate - время завершения курса (nil, пока не завершён).
	CompletionDate *time.Time

	// PaymentID - идентификатор успешного платежа (nil до оплаты).
	PaymentID *string

	// CancelReason - причина отмены (пустая строка, если не отменено).
	CancelReason string

	// Version - счётчик версий для оптимистичной блокировки.
	// Конкурентные операции над одной записью сериализуются через
	// check-and-bump в хранилище, без сырых SQL-обходов.
	Version int

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewEnrollment создаёт новую запись в состоянии PendingPayment.
func NewEnrollment(id, studentID, courseID string, price shared.Money) (*Enrollment, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if studentID == "" {
		return nil, ErrEmptyStudentID
	}
	if courseID == "" {
		return nil, ErrEmptyCourseID
	}

	now := time.Now().UTC()
	return &Enrollment{
		ID:             id,
		StudentID:      studentID,
		CourseID:       courseID,
		Price:          price,
		Status:         StatusPendingPayment,
		EnrollmentDate: now,
		Version:        1,
		UpdatedAt:      now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Activate переводит запись в Active после успешной оплаты.
//
// Повторная активация уже активной записи - идемпотентный no-op: метод
// возвращает changed=false без ошибки. Из терминальных состояний активация
// невозможна.
func (e *Enrollment) Activate(paymentID string, at time.Time) (changed bool, err error) {
	switch e.Status {
	case StatusActive:
		return false, nil
	case StatusPendingPayment:
		at = at.UTC()
		e.Status = StatusActive
		e.ActivationDate = &at
		e.PaymentID = &paymentID
		e.UpdatedAt = time.Now().UTC()
		return true, nil
	default:
		return false, transitionError("Activate", e, ErrNotPendingPayment)
	}
}

// Complete переводит запись в Completed.
//
// Вызывающая сторона обязана предварительно убедиться, что все уроки курса
// пройдены (Progress Ledger); сам метод проверяет только состояние машины.
func (e *Enrollment) Complete(at time.Time) error {
	if e.Status != StatusActive {
		return transitionError("Complete", e, ErrNotActive)
	}
	at = at.UTC()
	e.Status = StatusCompleted
	e.CompletionDate = &at
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel отменяет запись. Разрешено только из PendingPayment и Active.
func (e *Enrollment) Cancel(reason string) error {
	if reason == "" {
		return ErrEmptyCancelReason
	}
	if e.Status.IsTerminal() {
		return transitionError("Cancel", e, ErrTerminalState)
	}
	e.Status = StatusCancelled
	e.CancelReason = reason
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// IsActive возвращает true, если запись активна.
func (e *Enrollment) IsActive() bool {
	return e.Status == StatusActive
}

// transitionError оборачивает ошибку перехода в DomainError c контекстом.
func transitionError(op string, e *Enrollment, cause error) error {
	return shared.WrapError("enrollment", op, shared.ErrInvalidState,
		fmt.Sprintf("illegal transition from %q for enrollment %s", e.Status, e.ID), cause)
}
