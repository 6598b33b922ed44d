// Package notification содержит доменную модель уведомлений языковой школы.
// Уведомления информируют студента о ключевых событиях жизненного цикла:
// активация записи на курс, неудачная оплата, выдача сертификата.
package notification

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип уведомления.
type Type string

const (
	// TypeEnrollmentActivated - оплата прошла, курс доступен.
	TypeEnrollmentActivated Type = "enrollment_activated"

	// TypeEnrollmentCompleted - курс завершён.
	TypeEnrollmentCompleted Type = "enrollment_completed"

	// TypePaymentFailed - оплата не прошла, можно повторить.
	TypePaymentFailed Type = "payment_failed"

	// TypePaymentRefunded - платёж возвращён.
	TypePaymentRefunded Type = "payment_refunded"

	// TypeCertificateIssued - выдан сертификат.
	TypeCertificateIssued Type = "certificate_issued"
)

// IsValid проверяет корректность типа уведомления.
func (t Type) IsValid() bool {
	switch t {
	case TypeEnrollmentActivated, TypeEnrollmentCompleted,
		TypePaymentFailed, TypePaymentRefunded, TypeCertificateIssued:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (t Type) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyRecipient - пустой идентификатор получателя.
	ErrEmptyRecipient = errors.New("notification: recipient cannot be empty")

	// ErrInvalidType - неизвестный тип уведомления.
	ErrInvalidType = errors.New("notification: invalid type")
)

// Message - уведомление, готовое к отправке во внешний канал
// (email-рассыльщик, аналитика). Содержимое - плоские key/value-данные,
// рендеринг шаблонов - забота получающей стороны.
type Message struct {
	// Type - тип уведомления.
	Type Type

	// RecipientID - идентификатор студента-получателя.
	RecipientID string

	// Subject - краткий заголовок.
	Subject string

	// Data - полезная нагрузка (course_id, certificate_number и т.д.).
	Data map[string]string

	// CreatedAt - время создания уведомления.
	CreatedAt time.Time
}

// NewMessage создаёт уведомление с валидацией.
func NewMessage(t Type, recipientID, subject string, data map[string]string) (*Message, error) {
	if !t.IsValid() {
		return nil, ErrInvalidType
	}
	if recipientID == "" {
		return nil, ErrEmptyRecipient
	}
	if data == nil {
		data = map[string]string{}
	}
	return &Message{
		Type:        t,
		RecipientID: recipientID,
		Subject:     subject,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDER
// ══════════════════════════════════════════════════════════════════════════════

// Sender определяет контракт внешнего канала доставки уведомлений.
// Реализация (webhook-клиент) находится в infrastructure/external/webhook.
// Доставка - best effort: ошибки логируются обработчиками событий,
// но не откатывают доменные изменения.
type Sender interface {
	// Send доставляет уведомление.
	Send(ctx context.Context, msg *Message) error
}

// NoopSender молча отбрасывает уведомления. Используется, когда
// webhook-канал не сконфигурирован.
type NoopSender struct{}

// Send реализует интерфейс Sender.
func (NoopSender) Send(ctx context.Context, msg *Message) error {
	return nil
}
