package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL STUDENT COMMAND
// Creates a new enrollment in PendingPayment. The student pays afterwards via
// ProcessPayment; until then the course is not accessible.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand contains the data to enroll a student into a course.
type EnrollStudentCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// CourseID is the ID of the course in the external catalog.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("enroll_student: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("enroll_student: course_id is required")
	}
	return nil
}

// EnrollStudentResult contains the result of the enrollment.
type EnrollStudentResult struct {
	// EnrollmentID is the ID of the created enrollment.
	EnrollmentID string

	// Status is the initial enrollment status (pending_payment).
	Status enrollment.Status

	// Price is the course price captured at enrollment time.
	Price shared.Money
}

// EnrollStudentHandler handles the EnrollStudentCommand.
type EnrollStudentHandler struct {
	studentRepo    student.Repository
	enrollmentRepo enrollment.Repository
	catalog        course.Catalog
	eventPublisher shared.EventPublisher
	newID          func() string
}

// NewEnrollStudentHandler creates a new EnrollStudentHandler.
func NewEnrollStudentHandler(
	studentRepo student.Repository,
	enrollmentRepo enrollment.Repository,
	catalog course.Catalog,
	eventPublisher shared.EventPublisher,
	newID func() string,
) *EnrollStudentHandler {
	return &EnrollStudentHandler{
		studentRepo:    studentRepo,
		enrollmentRepo: enrollmentRepo,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		newID:          newID,
	}
}

// Handle executes the enroll student command.
func (h *EnrollStudentHandler) Handle(ctx context.Context, cmd EnrollStudentCommand) (*EnrollStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrInvalidInput, "validation failed", err)
	}

	stud, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if !stud.CanEnroll() {
		return nil, shared.ErrStudentInactive
	}

	crs, err := h.catalog.GetCourse(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	// At most one non-cancelled enrollment per (student, course). The partial
	// unique index in storage is the backstop when two requests race here.
	_, err = h.enrollmentRepo.GetByStudentAndCourse(ctx, cmd.StudentID, cmd.CourseID)
	switch {
	case err == nil:
		return nil, shared.ErrAlreadyEnrolled
	case !shared.IsNotFound(err):
		return nil, err
	}

	price, err := shared.NewMoney(crs.PriceCents, crs.Currency)
	if err != nil {
		return nil, fmt.Errorf("enroll_student: invalid catalog price: %w", err)
	}

	enr, err := enrollment.NewEnrollment(h.newID(), cmd.StudentID, cmd.CourseID, price)
	if err != nil {
		return nil, err
	}

	if err := h.enrollmentRepo.Create(ctx, enr); err != nil {
		return nil, err
	}

	event := shared.NewStudentEnrolledEvent(enr.ID, enr.StudentID, enr.CourseID, price.Cents, price.Currency)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	return &EnrollStudentResult{
		EnrollmentID: enr.ID,
		Status:       enr.Status,
		Price:        price,
	}, nil
}
