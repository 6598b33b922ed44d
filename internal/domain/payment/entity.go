// Package payment содержит доменную модель платежа за курс.
//
// У одной записи на курс может быть 0..N попыток оплаты, но не более одной
// успешной и не возвращённой. Неудачная попытка не блокирует повторную
// оплату - запись остаётся в PendingPayment.
package payment

import (
	"errors"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет состояние платежа.
type Status string

const (
	// StatusPending - платёж создан, шлюз ещё не ответил.
	StatusPending Status = "pending"

	// StatusSuccessful - шлюз подтвердил списание.
	StatusSuccessful Status = "successful"

	// StatusFailed - шлюз отклонил платёж или вызов не удался.
	StatusFailed Status = "failed"

	// StatusRefunded - платёж возвращён.
	StatusRefunded Status = "refunded"

	// StatusCancelled - платёж отменён до обращения к шлюзу.
	StatusCancelled Status = "cancelled"

	// StatusUnknown - исход неизвестен (например, таймаут после отправки).
	StatusUnknown Status = "unknown"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusFailed, StatusRefunded, StatusCancelled, StatusUnknown:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyID - пустой идентификатор платежа.
	ErrEmptyID = errors.New("payment: id cannot be empty")

	// ErrEmptyEnrollmentID - пустой идентификатор записи на курс.
	ErrEmptyEnrollmentID = errors.New("payment: enrollment id cannot be empty")

	// ErrEmptyStudentID - пустой идентификатор студента.
	ErrEmptyStudentID = errors.New("payment: student id cannot be empty")

	// ErrNotPending - исход можно зафиксировать только для pending-платежа.
	ErrNotPending = errors.New("payment: outcome can only be recorded for a pending payment")

	// ErrEmptyTransactionID - пустой идентификатор транзакции шлюза.
	ErrEmptyTransactionID = errors.New("payment: transaction id cannot be empty")

	// ErrEmptyRefundReason - причина возврата обязательна.
	ErrEmptyRefundReason = errors.New("payment: refund reason cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PAYMENT
// ══════════════════════════════════════════════════════════════════════════════

// Payment - попытка оплаты записи на курс.
type Payment struct {
	// ID - уникальный идентификатор платежа (UUID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// EnrollmentID - идентификатор записи на курс.
	EnrollmentID string

	// Amount - сумма платежа.
	Amount shared.Money

	// Status - состояние платежа.
	Status Status

	// TransactionID - идентификатор транзакции платёжного шлюза
	// (пустой, пока шлюз не подтвердил списание).
	TransactionID string

	// FailureReason - причина отказа (для Failed).
	FailureReason string

	// RefundReason - причина возврата (для Refunded).
	RefundReason string

	// CreatedAt - время создания платежа.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewPayment создаёт новый платёж в состоянии Pending.
func NewPayment(id, studentID, enrollmentID string, amount shared.Money) (*Payment, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if studentID == "" {
		return nil, ErrEmptyStudentID
	}
	if enrollmentID == "" {
		return nil, ErrEmptyEnrollmentID
	}

	now := time.Now().UTC()
	return &Payment{
		ID:           id,
		StudentID:    studentID,
		EnrollmentID: enrollmentID,
		Amount:       amount,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// MarkSucceeded фиксирует подтверждённое шлюзом списание.
func (p *Payment) MarkSucceeded(transactionID string) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	if transactionID == "" {
		return ErrEmptyTransactionID
	}
	p.Status = StatusSuccessful
	p.TransactionID = transactionID
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed фиксирует отказ шлюза или ошибку вызова.
// Сетевые ошибки и таймауты тоже попадают сюда с обобщённой причиной -
// исход вызова шлюза никогда не теряется молча.
func (p *Payment) MarkFailed(reason string) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	if reason == "" {
		reason = "payment failed"
	}
	p.Status = StatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRefunded фиксирует возврат платежа.
// Возврат возможен только для успешного платежа; повторный возврат -
// конфликт состояния ("already refunded"), а не идемпотентный no-op.
func (p *Payment) MarkRefunded(reason string) error {
	switch p.Status {
	case StatusRefunded:
		return shared.ErrAlreadyRefunded
	case StatusSuccessful:
		if reason == "" {
			return ErrEmptyRefundReason
		}
		p.Status = StatusRefunded
		p.RefundReason = reason
		p.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return shared.ErrPaymentNotRefundable
	}
}

// IsSuccessful возвращает true для успешного, не возвращённого платежа.
func (p *Payment) IsSuccessful() bool {
	return p.Status == StatusSuccessful
}
