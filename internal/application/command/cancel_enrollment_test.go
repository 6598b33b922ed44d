package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func TestCancelEnrollment(t *testing.T) {
	enrollmentRepo, _, _, _ := learningSetup(t)
	publisher := &capturePublisher{}
	h := NewCancelEnrollmentHandler(enrollmentRepo, publisher)

	res, err := h.Handle(context.Background(), CancelEnrollmentCommand{
		EnrollmentID: "enr-1",
		Reason:       "changed my mind",
	})
	require.NoError(t, err)

	assert.Equal(t, enrollment.StatusCancelled, res.Status)

	enr, err := enrollmentRepo.GetByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCancelled, enr.Status)
	assert.Equal(t, "changed my mind", enr.CancelReason)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventEnrollmentCancelled, publisher.events[0].EventType())
}

func TestCancelEnrollment_ReasonRequired(t *testing.T) {
	enrollmentRepo, _, _, _ := learningSetup(t)
	h := NewCancelEnrollmentHandler(enrollmentRepo, &capturePublisher{})

	_, err := h.Handle(context.Background(), CancelEnrollmentCommand{EnrollmentID: "enr-1"})
	assert.True(t, shared.IsValidationError(err))
}

func TestCancelEnrollment_CompletedEnrollment(t *testing.T) {
	enrollmentRepo, _, _, _ := learningSetup(t)
	ctx := context.Background()

	enr, err := enrollmentRepo.GetByID(ctx, "enr-1")
	require.NoError(t, err)
	require.NoError(t, enr.Complete(enr.EnrollmentDate))
	require.NoError(t, enrollmentRepo.Update(ctx, enr))

	h := NewCancelEnrollmentHandler(enrollmentRepo, &capturePublisher{})

	_, err = h.Handle(ctx, CancelEnrollmentCommand{EnrollmentID: "enr-1", Reason: "too late"})
	assert.True(t, shared.IsInvalidState(err))
}

func TestCancelEnrollment_NotFound(t *testing.T) {
	h := NewCancelEnrollmentHandler(newMemEnrollmentRepo(), &capturePublisher{})

	_, err := h.Handle(context.Background(), CancelEnrollmentCommand{EnrollmentID: "ghost", Reason: "x"})
	assert.True(t, shared.IsNotFound(err))
}
