package command

import (
	"context"
	"errors"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL ENROLLMENT COMMAND
// Cancels a pending or active enrollment. Cancellation does not refund any
// payment; refunds go through the RefundPayment command.
// ══════════════════════════════════════════════════════════════════════════════

// CancelEnrollmentCommand contains the data to cancel an enrollment.
type CancelEnrollmentCommand struct {
	// EnrollmentID is the enrollment to cancel.
	EnrollmentID string

	// Reason is the mandatory cancellation reason.
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CancelEnrollmentCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("cancel_enrollment: enrollment_id is required")
	}
	if c.Reason == "" {
		return errors.New("cancel_enrollment: reason is required")
	}
	return nil
}

// CancelEnrollmentResult contains the result of the cancellation.
type CancelEnrollmentResult struct {
	// EnrollmentID is the cancelled enrollment.
	EnrollmentID string

	// Status is the enrollment status after the operation.
	Status enrollment.Status
}

// CancelEnrollmentHandler handles the CancelEnrollmentCommand.
type CancelEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
	eventPublisher shared.EventPublisher
}

// NewCancelEnrollmentHandler creates a new CancelEnrollmentHandler.
func NewCancelEnrollmentHandler(
	enrollmentRepo enrollment.Repository,
	eventPublisher shared.EventPublisher,
) *CancelEnrollmentHandler {
	return &CancelEnrollmentHandler{
		enrollmentRepo: enrollmentRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the cancel enrollment command.
func (h *CancelEnrollmentHandler) Handle(ctx context.Context, cmd CancelEnrollmentCommand) (*CancelEnrollmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "Cancel", shared.ErrInvalidInput, "validation failed", err)
	}

	updated, err := updateEnrollmentWithRetry(ctx, h.enrollmentRepo, cmd.EnrollmentID, func(e *enrollment.Enrollment) error {
		return e.Cancel(cmd.Reason)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewEnrollmentCancelledEvent(updated.ID, updated.StudentID, updated.CourseID, updated.CancelReason)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	return &CancelEnrollmentResult{
		EnrollmentID: updated.ID,
		Status:       updated.Status,
	}, nil
}
