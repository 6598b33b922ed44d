package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingua-hub/lingua-school-backend/internal/application/command"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/notification"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ENROLLMENT COMPLETED HANDLER
// Обрабатывает событие завершения курса студентом.
//
// Ключевые функции:
// 1. Выдача сертификата — ровно один на пару (студент, курс);
//    идемпотентность обеспечивает команда выдачи и уникальный индекс
// 2. Поздравительное уведомление
// ═══════════════════════════════════════════════════════════════════════════

// OnEnrollmentCompletedHandler обрабатывает событие завершения курса.
type OnEnrollmentCompletedHandler struct {
	issueCertificate *command.IssueCertificateHandler
	sender           notification.Sender
	logger           *slog.Logger
}

// NewOnEnrollmentCompletedHandler создаёт новый обработчик.
func NewOnEnrollmentCompletedHandler(
	issueCertificate *command.IssueCertificateHandler,
	sender notification.Sender,
	logger *slog.Logger,
) *OnEnrollmentCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnEnrollmentCompletedHandler{
		issueCertificate: issueCertificate,
		sender:           sender,
		logger:           logger.With("handler", "on_enrollment_completed"),
	}
}

// Handle обрабатывает событие завершения курса.
// Реализует интерфейс shared.EventHandler.
func (h *OnEnrollmentCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	completed, ok := event.(shared.EnrollmentCompletedEvent)
	if !ok {
		h.logger.Warn("received non-EnrollmentCompletedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing enrollment completed event",
		"enrollment_id", completed.EnrollmentID,
		"student_id", completed.StudentID,
		"course_id", completed.CourseID,
	)

	// 1. Выдаём сертификат. Повторная доставка события безопасна:
	// команда возвращает уже выданный сертификат без ошибки.
	result, err := h.issueCertificate.Handle(ctx, command.IssueCertificateCommand{
		StudentID:     completed.StudentID,
		CourseID:      completed.CourseID,
		CorrelationID: completed.CorrelationID,
	})
	if err != nil {
		h.logger.Error("failed to issue certificate",
			"student_id", completed.StudentID,
			"course_id", completed.CourseID,
			"error", err,
		)
		return fmt.Errorf("issue certificate: %w", err)
	}

	if result.AlreadyIssued {
		h.logger.Info("certificate already issued",
			"certificate_id", result.CertificateID,
			"student_id", completed.StudentID,
		)
	}

	// 2. Поздравляем студента.
	msg, err := notification.NewMessage(
		notification.TypeEnrollmentCompleted,
		completed.StudentID,
		"Congratulations on completing your course",
		map[string]string{
			"course_id":          completed.CourseID,
			"enrollment_id":      completed.EnrollmentID,
			"certificate_number": result.Number.String(),
		},
	)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Warn("failed to send completion notification",
			"student_id", completed.StudentID,
			"error", err,
		)
	}

	return nil
}
