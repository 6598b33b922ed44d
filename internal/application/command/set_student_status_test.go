package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func TestSetStudentStatus_Deactivate(t *testing.T) {
	studentRepo := newMemStudentRepo()
	stud := registerTestStudent(t, studentRepo, "stud-1")
	publisher := &capturePublisher{}

	h := NewSetStudentStatusHandler(studentRepo, publisher)

	res, err := h.Handle(context.Background(), SetStudentStatusCommand{
		StudentID: stud.ID,
		Active:    false,
		Reason:    "account abuse",
	})
	require.NoError(t, err)

	assert.False(t, res.Active)
	assert.True(t, res.Changed)

	stored, err := studentRepo.GetByID(context.Background(), stud.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventStudentDeactivated, publisher.events[0].EventType())
}

func TestSetStudentStatus_Reactivate(t *testing.T) {
	studentRepo := newMemStudentRepo()
	stud := registerTestStudent(t, studentRepo, "stud-1")
	publisher := &capturePublisher{}

	h := NewSetStudentStatusHandler(studentRepo, publisher)
	ctx := context.Background()

	_, err := h.Handle(ctx, SetStudentStatusCommand{StudentID: stud.ID, Active: false})
	require.NoError(t, err)

	res, err := h.Handle(ctx, SetStudentStatusCommand{StudentID: stud.ID, Active: true})
	require.NoError(t, err)

	assert.True(t, res.Active)
	assert.True(t, res.Changed)
	assert.Equal(t, shared.EventStudentActivated, publisher.events[1].EventType())
}

func TestSetStudentStatus_NoopWhenAlreadyInState(t *testing.T) {
	studentRepo := newMemStudentRepo()
	stud := registerTestStudent(t, studentRepo, "stud-1")
	publisher := &capturePublisher{}

	h := NewSetStudentStatusHandler(studentRepo, publisher)

	res, err := h.Handle(context.Background(), SetStudentStatusCommand{StudentID: stud.ID, Active: true})
	require.NoError(t, err)

	assert.True(t, res.Active)
	assert.False(t, res.Changed)
	assert.Empty(t, publisher.events)
}

func TestSetStudentStatus_NotFound(t *testing.T) {
	h := NewSetStudentStatusHandler(newMemStudentRepo(), &capturePublisher{})

	_, err := h.Handle(context.Background(), SetStudentStatusCommand{StudentID: "ghost", Active: false})
	assert.True(t, shared.IsNotFound(err))
}
