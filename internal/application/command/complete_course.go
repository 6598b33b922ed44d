package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE COURSE COMMAND
// Transitions an active enrollment to Completed once every lesson of the
// course is recorded in the progress ledger. Certificate issuance follows
// asynchronously from the EnrollmentCompleted event.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteCourseCommand contains the data to complete a course.
type CompleteCourseCommand struct {
	// StudentID is the student finishing the course.
	StudentID string

	// CourseID is the course being completed.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteCourseCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("complete_course: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("complete_course: course_id is required")
	}
	return nil
}

// CompleteCourseResult contains the result of the completion.
type CompleteCourseResult struct {
	// EnrollmentID is the completed enrollment.
	EnrollmentID string

	// Status is the enrollment status after the operation.
	Status enrollment.Status

	// CompletionDate is when the enrollment was completed.
	CompletionDate time.Time
}

// CompleteCourseHandler handles the CompleteCourseCommand.
type CompleteCourseHandler struct {
	enrollmentRepo enrollment.Repository
	ledger         *progress.Ledger
	catalog        course.Catalog
	eventPublisher shared.EventPublisher
}

// NewCompleteCourseHandler creates a new CompleteCourseHandler.
func NewCompleteCourseHandler(
	enrollmentRepo enrollment.Repository,
	ledger *progress.Ledger,
	catalog course.Catalog,
	eventPublisher shared.EventPublisher,
) *CompleteCourseHandler {
	return &CompleteCourseHandler{
		enrollmentRepo: enrollmentRepo,
		ledger:         ledger,
		catalog:        catalog,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the complete course command.
func (h *CompleteCourseHandler) Handle(ctx context.Context, cmd CompleteCourseCommand) (*CompleteCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "Complete", shared.ErrInvalidInput, "validation failed", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	if enr.Status != enrollment.StatusActive {
		return nil, shared.ErrEnrollmentNotActive
	}

	total, err := h.catalog.GetLessonCount(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	done, err := h.ledger.HasCompletedAll(ctx, cmd.StudentID, cmd.CourseID, total)
	if err != nil {
		return nil, err
	}
	if !done {
		completed, countErr := h.ledger.CountCompleted(ctx, cmd.StudentID, cmd.CourseID)
		if countErr != nil {
			return nil, countErr
		}
		return nil, shared.WrapError("progress", "CompleteCourse", shared.ErrPrecondition,
			fmt.Sprintf("%d of %d lessons completed", completed, total),
			shared.ErrCourseNotCompleted)
	}

	// Idempotent ledger write first. If the enrollment transition below loses
	// a race and the command retries, the mark is simply re-applied.
	if err := h.ledger.MarkCourseCompleted(ctx, cmd.StudentID, cmd.CourseID); err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	updated, err := updateEnrollmentWithRetry(ctx, h.enrollmentRepo, enr.ID, func(e *enrollment.Enrollment) error {
		return e.Complete(completedAt)
	})
	if err != nil {
		return nil, err
	}

	courseDone := shared.NewCourseCompletedEvent(cmd.StudentID, cmd.CourseID)
	courseDone.BaseEvent = courseDone.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, courseDone)

	completedDate := completedAt
	if updated.CompletionDate != nil {
		completedDate = *updated.CompletionDate
	}
	enrollmentDone := shared.NewEnrollmentCompletedEvent(updated.ID, updated.StudentID, updated.CourseID, completedDate)
	enrollmentDone.BaseEvent = enrollmentDone.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, enrollmentDone)

	return &CompleteCourseResult{
		EnrollmentID:   updated.ID,
		Status:         updated.Status,
		CompletionDate: completedDate,
	}, nil
}
