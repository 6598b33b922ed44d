// Package eventhandler содержит обработчики доменных событий.
//
// Обработчики - побочные эффекты после успешного коммита команды:
// уведомления, выдача сертификатов, прогрев кеша. Ошибки обработчиков
// логируются, но не откатывают доменные изменения.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ENROLLMENT ACTIVATED HANDLER
// Обрабатывает событие активации записи на курс (оплата прошла).
//
// Ключевые функции:
// 1. Приветственное уведомление — курс доступен, можно начинать
// 2. Логирование факта активации для аудита
// ═══════════════════════════════════════════════════════════════════════════

// OnEnrollmentActivatedHandler обрабатывает событие активации записи.
type OnEnrollmentActivatedHandler struct {
	studentRepo student.Repository
	sender      notification.Sender
	logger      *slog.Logger
}

// NewOnEnrollmentActivatedHandler создаёт новый обработчик.
func NewOnEnrollmentActivatedHandler(
	studentRepo student.Repository,
	sender notification.Sender,
	logger *slog.Logger,
) *OnEnrollmentActivatedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnEnrollmentActivatedHandler{
		studentRepo: studentRepo,
		sender:      sender,
		logger:      logger.With("handler", "on_enrollment_activated"),
	}
}

// Handle обрабатывает событие активации.
// Реализует интерфейс shared.EventHandler.
func (h *OnEnrollmentActivatedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	activated, ok := event.(shared.EnrollmentActivatedEvent)
	if !ok {
		h.logger.Warn("received non-EnrollmentActivatedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing enrollment activated event",
		"enrollment_id", activated.EnrollmentID,
		"student_id", activated.StudentID,
		"course_id", activated.CourseID,
	)

	stud, err := h.studentRepo.GetByID(ctx, activated.StudentID)
	if err != nil {
		h.logger.Error("failed to get student",
			"student_id", activated.StudentID,
			"error", err,
		)
		return fmt.Errorf("get student: %w", err)
	}

	msg, err := notification.NewMessage(
		notification.TypeEnrollmentActivated,
		stud.ID,
		"Your course is ready",
		map[string]string{
			"course_id":     activated.CourseID,
			"enrollment_id": activated.EnrollmentID,
			"payment_id":    activated.PaymentID,
		},
	)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}

	// Доставка best effort: неудача уведомления не делает активацию
	// невалидной.
	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Warn("failed to send activation notification",
			"student_id", stud.ID,
			"error", err,
		)
	}

	return nil
}
