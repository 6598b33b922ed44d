package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// learningSetup seeds an active enrollment on a 3-lesson course and returns
// the wired handler dependencies.
func learningSetup(t *testing.T) (*memEnrollmentRepo, *stubCatalog, *progress.Ledger, *capturePublisher) {
	t.Helper()
	ctx := context.Background()

	enrollmentRepo := newMemEnrollmentRepo()
	catalog := newStubCatalog()
	catalog.addCourse("course-1", "Kazakh A1", 3, 14900)
	for _, lesson := range []string{"l1", "l2", "l3"} {
		catalog.addLesson(lesson, "course-1")
	}

	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	enr, err := enrollment.NewEnrollment("enr-1", "stud-1", "course-1", price)
	require.NoError(t, err)
	_, err = enr.Activate("pay-1", enr.EnrollmentDate)
	require.NoError(t, err)
	require.NoError(t, enrollmentRepo.Create(ctx, enr))

	ledger := progress.NewLedger(newMemProgressRepo(), seqIDGen("cl"), false)
	return enrollmentRepo, catalog, ledger, &capturePublisher{}
}

func TestCompleteLesson(t *testing.T) {
	enrollmentRepo, catalog, ledger, publisher := learningSetup(t)
	h := NewCompleteLessonHandler(enrollmentRepo, ledger, catalog, publisher)

	res, err := h.Handle(context.Background(), CompleteLessonCommand{
		StudentID: "stud-1",
		CourseID:  "course-1",
		LessonID:  "l1",
	})
	require.NoError(t, err)

	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, 1, res.CompletedCount)
	assert.Equal(t, 3, res.TotalCount)
	assert.False(t, res.CourseCompleted)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventLessonCompleted, publisher.events[0].EventType())
}

func TestCompleteLesson_Idempotent(t *testing.T) {
	enrollmentRepo, catalog, ledger, publisher := learningSetup(t)
	h := NewCompleteLessonHandler(enrollmentRepo, ledger, catalog, publisher)
	cmd := CompleteLessonCommand{StudentID: "stud-1", CourseID: "course-1", LessonID: "l1"}

	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, 1, res.CompletedCount)

	// The repeat records no second event.
	assert.Len(t, publisher.events, 1)
}

func TestCompleteLesson_LastLessonCompletesCourse(t *testing.T) {
	enrollmentRepo, catalog, ledger, publisher := learningSetup(t)
	h := NewCompleteLessonHandler(enrollmentRepo, ledger, catalog, publisher)

	var res *CompleteLessonResult
	var err error
	for _, lesson := range []string{"l1", "l2", "l3"} {
		res, err = h.Handle(context.Background(), CompleteLessonCommand{
			StudentID: "stud-1", CourseID: "course-1", LessonID: lesson,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, res.CompletedCount)
	assert.True(t, res.CourseCompleted)
}

func TestCompleteLesson_EnrollmentNotActive(t *testing.T) {
	enrollmentRepo, catalog, ledger, publisher := learningSetup(t)

	ctx := context.Background()
	enr, err := enrollmentRepo.GetByID(ctx, "enr-1")
	require.NoError(t, err)
	require.NoError(t, enr.Complete(enr.EnrollmentDate))
	require.NoError(t, enrollmentRepo.Update(ctx, enr))

	h := NewCompleteLessonHandler(enrollmentRepo, ledger, catalog, publisher)

	_, err = h.Handle(ctx, CompleteLessonCommand{StudentID: "stud-1", CourseID: "course-1", LessonID: "l1"})
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotActive)
}

func TestCompleteLesson_LessonNotInCourse(t *testing.T) {
	enrollmentRepo, catalog, ledger, publisher := learningSetup(t)
	catalog.addLesson("stray", "course-2")

	h := NewCompleteLessonHandler(enrollmentRepo, ledger, catalog, publisher)

	_, err := h.Handle(context.Background(), CompleteLessonCommand{
		StudentID: "stud-1", CourseID: "course-1", LessonID: "stray",
	})
	assert.ErrorIs(t, err, shared.ErrLessonNotInCourse)
	assert.Empty(t, publisher.events)
}

func TestCompleteLesson_NoEnrollment(t *testing.T) {
	_, catalog, ledger, publisher := learningSetup(t)

	h := NewCompleteLessonHandler(newMemEnrollmentRepo(), ledger, catalog, publisher)

	_, err := h.Handle(context.Background(), CompleteLessonCommand{
		StudentID: "stud-1", CourseID: "course-1", LessonID: "l1",
	})
	assert.True(t, shared.IsNotFound(err))
}
