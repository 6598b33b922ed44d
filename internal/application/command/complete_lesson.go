package command

import (
	"context"
	"errors"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON COMMAND
// Records a lesson completion in the progress ledger. Re-submitting the same
// lesson is a successful no-op, so clients can retry freely.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteLessonCommand contains the data to record a lesson completion.
type CompleteLessonCommand struct {
	// StudentID is the student who completed the lesson.
	StudentID string

	// CourseID is the course the lesson belongs to.
	CourseID string

	// LessonID is the completed lesson.
	LessonID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteLessonCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("complete_lesson: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("complete_lesson: course_id is required")
	}
	if c.LessonID == "" {
		return errors.New("complete_lesson: lesson_id is required")
	}
	return nil
}

// CompleteLessonResult contains the result of recording a lesson.
type CompleteLessonResult struct {
	// AlreadyCompleted is true when the lesson had been recorded before.
	AlreadyCompleted bool

	// CompletedCount is the number of completed lessons after the operation.
	CompletedCount int

	// TotalCount is the current lesson count of the course in the catalog.
	TotalCount int

	// CourseCompleted is true when every lesson of the course is now done.
	// The enrollment itself transitions via the CompleteCourse command.
	CourseCompleted bool
}

// CompleteLessonHandler handles the CompleteLessonCommand.
type CompleteLessonHandler struct {
	enrollmentRepo enrollment.Repository
	ledger         *progress.Ledger
	catalog        course.Catalog
	eventPublisher shared.EventPublisher
}

// NewCompleteLessonHandler creates a new CompleteLessonHandler.
func NewCompleteLessonHandler(
	enrollmentRepo enrollment.Repository,
	ledger *progress.Ledger,
	catalog course.Catalog,
	eventPublisher shared.EventPublisher,
) *CompleteLessonHandler {
	return &CompleteLessonHandler{
		enrollmentRepo: enrollmentRepo,
		ledger:         ledger,
		catalog:        catalog,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the complete lesson command.
func (h *CompleteLessonHandler) Handle(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("progress", "CompleteLesson", shared.ErrInvalidInput, "validation failed", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	// Progress accrues only against a paid, active enrollment.
	if enr.Status != enrollment.StatusActive {
		return nil, shared.ErrEnrollmentNotActive
	}

	lesson, err := h.catalog.GetLesson(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CourseID != cmd.CourseID {
		return nil, shared.ErrLessonNotInCourse
	}

	rec, err := h.ledger.RecordLessonCompletion(ctx, cmd.StudentID, cmd.CourseID, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	// The total is the live catalog value, never a snapshot: the catalog may
	// add or remove lessons while the student is mid-course.
	total, err := h.catalog.GetLessonCount(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	if !rec.AlreadyCompleted {
		event := shared.NewLessonCompletedEvent(cmd.StudentID, cmd.CourseID, cmd.LessonID, rec.CompletedCount, total)
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		publishEvent(h.eventPublisher, event)
	}

	done, err := h.ledger.HasCompletedAll(ctx, cmd.StudentID, cmd.CourseID, total)
	if err != nil {
		return nil, err
	}

	return &CompleteLessonResult{
		AlreadyCompleted: rec.AlreadyCompleted,
		CompletedCount:   rec.CompletedCount,
		TotalCount:       total,
		CourseCompleted:  done,
	}, nil
}
