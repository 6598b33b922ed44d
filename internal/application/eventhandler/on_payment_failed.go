package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PAYMENT FAILED HANDLER
// Обрабатывает неудачную оплату: студенту отправляется уведомление с
// причиной отказа и подсказкой повторить оплату. Запись на курс остаётся
// в PendingPayment.
// ═══════════════════════════════════════════════════════════════════════════

// OnPaymentFailedHandler обрабатывает событие неудачной оплаты.
type OnPaymentFailedHandler struct {
	sender notification.Sender
	logger *slog.Logger
}

// NewOnPaymentFailedHandler создаёт новый обработчик.
func NewOnPaymentFailedHandler(sender notification.Sender, logger *slog.Logger) *OnPaymentFailedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnPaymentFailedHandler{
		sender: sender,
		logger: logger.With("handler", "on_payment_failed"),
	}
}

// Handle обрабатывает событие неудачной оплаты.
// Реализует интерфейс shared.EventHandler.
func (h *OnPaymentFailedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	failed, ok := event.(shared.PaymentFailedEvent)
	if !ok {
		h.logger.Warn("received non-PaymentFailedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing payment failed event",
		"payment_id", failed.PaymentID,
		"enrollment_id", failed.EnrollmentID,
		"student_id", failed.StudentID,
		"reason", failed.Reason,
	)

	msg, err := notification.NewMessage(
		notification.TypePaymentFailed,
		failed.StudentID,
		"Payment failed, please try again",
		map[string]string{
			"payment_id":    failed.PaymentID,
			"enrollment_id": failed.EnrollmentID,
			"reason":        failed.Reason,
		},
	)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Warn("failed to send payment failure notification",
			"student_id", failed.StudentID,
			"error", err,
		)
	}

	return nil
}
