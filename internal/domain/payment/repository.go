package payment

import (
	"context"
	"time"
)

// Repository определяет операции хранилища для платежей.
type Repository interface {
	// Create сохраняет новый платёж.
	Create(ctx context.Context, p *Payment) error

	// GetByID возвращает платёж по ID.
	// Возвращает shared.ErrPaymentNotFound, если платёж не найден.
	GetByID(ctx context.Context, id string) (*Payment, error)

	// ListByEnrollment возвращает все попытки оплаты записи на курс,
	// от новых к старым.
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]*Payment, error)

	// Update сохраняет изменённый платёж.
	// Возвращает shared.ErrPaymentNotFound, если платёж не найден.
	Update(ctx context.Context, p *Payment) error

	// ListPendingOlderThan возвращает платежи, застрявшие в статусе pending
	// и созданные до cutoff. Используется сверкой для закрытия «подвисших»
	// платежей, по которым шлюз так и не дал ответа.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*Payment, error)
}
