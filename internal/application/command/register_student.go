package command

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// RegisterStudentCommand contains the data to register a new student.
type RegisterStudentCommand struct {
	// Email is the student's email address (unique).
	Email string

	// DisplayName is the student's display name.
	DisplayName string

	// Password is the plaintext password; only its bcrypt hash is stored.
	Password string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if c.Email == "" {
		return errors.New("register_student: email is required")
	}
	if c.DisplayName == "" {
		return errors.New("register_student: display_name is required")
	}
	if len(c.Password) < minPasswordLength {
		return errors.New("register_student: password must be at least 8 characters")
	}
	return nil
}

// RegisterStudentResult contains the result of the registration.
type RegisterStudentResult struct {
	// StudentID is the ID of the created student.
	StudentID string

	// Email is the normalized email.
	Email string
}

// RegisterStudentHandler handles the RegisterStudentCommand.
type RegisterStudentHandler struct {
	studentRepo    student.Repository
	eventPublisher shared.EventPublisher
	newID          func() string
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(
	studentRepo student.Repository,
	eventPublisher shared.EventPublisher,
	newID func() string,
) *RegisterStudentHandler {
	return &RegisterStudentHandler{
		studentRepo:    studentRepo,
		eventPublisher: eventPublisher,
		newID:          newID,
	}
}

// Handle executes the register student command.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("student", "Register", shared.ErrInvalidInput, "validation failed", err)
	}

	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	// Pre-check for a friendly error; the unique index on email is the
	// backstop when two registrations race.
	if _, err := h.studentRepo.GetByEmail(ctx, email); err == nil {
		return nil, shared.NewDomainError("student", "Register", shared.ErrAlreadyExists, "email already registered")
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.WrapError("student", "Register", shared.ErrInternal, "failed to hash password", err)
	}

	stud, err := student.NewStudent(student.NewStudentParams{
		ID:           h.newID(),
		Email:        email.String(),
		DisplayName:  cmd.DisplayName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	if err := h.studentRepo.Create(ctx, stud); err != nil {
		return nil, err
	}

	event := shared.NewStudentRegisteredEvent(stud.ID, stud.Email.String(), stud.DisplayName)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	return &RegisterStudentResult{
		StudentID: stud.ID,
		Email:     stud.Email.String(),
	}, nil
}
