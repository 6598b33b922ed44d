package command

import (
	"context"
	"errors"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET STUDENT STATUS COMMAND
// Activates or deactivates a student account. Deactivation blocks new
// enrollments but leaves existing enrollments untouched.
// ══════════════════════════════════════════════════════════════════════════════

// SetStudentStatusCommand contains the data to change a student's status.
type SetStudentStatusCommand struct {
	// StudentID is the student whose status changes.
	StudentID string

	// Active is the desired status.
	Active bool

	// Reason is the optional reason (kept in the event for audit).
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SetStudentStatusCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("set_student_status: student_id is required")
	}
	return nil
}

// SetStudentStatusResult contains the result of the status change.
type SetStudentStatusResult struct {
	// StudentID is the affected student.
	StudentID string

	// Active is the status after the operation.
	Active bool

	// Changed is false when the student was already in the desired status
	// (successful no-op).
	Changed bool
}

// SetStudentStatusHandler handles the SetStudentStatusCommand.
type SetStudentStatusHandler struct {
	studentRepo    student.Repository
	eventPublisher shared.EventPublisher
}

// NewSetStudentStatusHandler creates a new SetStudentStatusHandler.
func NewSetStudentStatusHandler(
	studentRepo student.Repository,
	eventPublisher shared.EventPublisher,
) *SetStudentStatusHandler {
	return &SetStudentStatusHandler{
		studentRepo:    studentRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the set student status command.
func (h *SetStudentStatusHandler) Handle(ctx context.Context, cmd SetStudentStatusCommand) (*SetStudentStatusResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("student", "SetStatus", shared.ErrInvalidInput, "validation failed", err)
	}

	stud, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	if stud.Active == cmd.Active {
		return &SetStudentStatusResult{
			StudentID: stud.ID,
			Active:    stud.Active,
		}, nil
	}

	if cmd.Active {
		err = stud.Activate()
	} else {
		err = stud.Deactivate()
	}
	if err != nil {
		return nil, err
	}

	if err := h.studentRepo.Update(ctx, stud); err != nil {
		return nil, err
	}

	event := shared.NewStudentStatusChangedEvent(stud.ID, stud.Active, cmd.Reason)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	return &SetStudentStatusResult{
		StudentID: stud.ID,
		Active:    stud.Active,
		Changed:   true,
	}, nil
}
