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
// ON CERTIFICATE ISSUED HANDLER
// Обрабатывает событие выдачи сертификата: уведомляет студента с номером
// сертификата.
// ═══════════════════════════════════════════════════════════════════════════

// OnCertificateIssuedHandler обрабатывает событие выдачи сертификата.
type OnCertificateIssuedHandler struct {
	studentRepo student.Repository
	sender      notification.Sender
	logger      *slog.Logger
}

// NewOnCertificateIssuedHandler создаёт новый обработчик.
func NewOnCertificateIssuedHandler(
	studentRepo student.Repository,
	sender notification.Sender,
	logger *slog.Logger,
) *OnCertificateIssuedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCertificateIssuedHandler{
		studentRepo: studentRepo,
		sender:      sender,
		logger:      logger.With("handler", "on_certificate_issued"),
	}
}

// Handle обрабатывает событие выдачи сертификата.
// Реализует интерфейс shared.EventHandler.
func (h *OnCertificateIssuedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	issued, ok := event.(shared.CertificateIssuedEvent)
	if !ok {
		h.logger.Warn("received non-CertificateIssuedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing certificate issued event",
		"certificate_id", issued.CertificateID,
		"student_id", issued.StudentID,
		"course_id", issued.CourseID,
		"number", issued.CertificateNumber,
	)

	stud, err := h.studentRepo.GetByID(ctx, issued.StudentID)
	if err != nil {
		h.logger.Error("failed to get student",
			"student_id", issued.StudentID,
			"error", err,
		)
		return fmt.Errorf("get student: %w", err)
	}

	msg, err := notification.NewMessage(
		notification.TypeCertificateIssued,
		stud.ID,
		"Your certificate is ready",
		map[string]string{
			"course_id":          issued.CourseID,
			"certificate_id":     issued.CertificateID,
			"certificate_number": issued.CertificateNumber,
		},
	)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Warn("failed to send certificate notification",
			"student_id", stud.ID,
			"error", err,
		)
	}

	return nil
}
