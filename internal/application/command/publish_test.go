package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

type failingPublisher struct{}

func (failingPublisher) Publish(shared.Event) error {
	return errors.New("broker unavailable")
}

func TestPublishEvent_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	publishEvent(failingPublisher{}, shared.NewCourseCompletedEvent("stud-1", "course-1"))

	out := buf.String()
	assert.Contains(t, out, "event publish failed")
	assert.Contains(t, out, string(shared.EventCourseCompleted))
	assert.Contains(t, out, "broker unavailable")
}

func TestRegisterStudent_PublishFailureDoesNotFailCommand(t *testing.T) {
	studentRepo := newMemStudentRepo()
	h := NewRegisterStudentHandler(studentRepo, failingPublisher{}, seqIDGen("stud"))

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		Email:       "aigerim@example.com",
		DisplayName: "Aigerim",
		Password:    "correct horse",
	})
	require.NoError(t, err)

	// The student is committed even though the event never went out.
	stored, err := studentRepo.GetByID(context.Background(), res.StudentID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}
