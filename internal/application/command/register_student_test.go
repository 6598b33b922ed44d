package command

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func TestRegisterStudent(t *testing.T) {
	studentRepo := newMemStudentRepo()
	publisher := &capturePublisher{}

	h := NewRegisterStudentHandler(studentRepo, publisher, seqIDGen("stud"))

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		Email:       "Aigerim@Example.COM",
		DisplayName: "Aigerim",
		Password:    "correct horse",
	})
	require.NoError(t, err)

	// The email is normalized to lowercase.
	assert.Equal(t, "aigerim@example.com", res.Email)

	stored, err := studentRepo.GetByID(context.Background(), res.StudentID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventStudentRegistered, publisher.events[0].EventType())
}

func TestRegisterStudent_DuplicateEmail(t *testing.T) {
	studentRepo := newMemStudentRepo()
	h := NewRegisterStudentHandler(studentRepo, &capturePublisher{}, seqIDGen("stud"))

	cmd := RegisterStudentCommand{
		Email:       "aigerim@example.com",
		DisplayName: "Aigerim",
		Password:    "correct horse",
	}

	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestRegisterStudent_ShortPassword(t *testing.T) {
	h := NewRegisterStudentHandler(newMemStudentRepo(), &capturePublisher{}, seqIDGen("stud"))

	_, err := h.Handle(context.Background(), RegisterStudentCommand{
		Email:       "aigerim@example.com",
		DisplayName: "Aigerim",
		Password:    "short",
	})
	assert.True(t, shared.IsValidationError(err))
}

func TestRegisterStudent_InvalidEmail(t *testing.T) {
	h := NewRegisterStudentHandler(newMemStudentRepo(), &capturePublisher{}, seqIDGen("stud"))

	_, err := h.Handle(context.Background(), RegisterStudentCommand{
		Email:       "not-an-email",
		DisplayName: "Aigerim",
		Password:    "correct horse",
	})
	assert.Error(t, err)
}
