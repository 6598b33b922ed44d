package projections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func TestStudentSummaryView_EnrollmentLifecycle(t *testing.T) {
	view := NewStudentSummaryView()
	now := time.Now().UTC()

	require.NoError(t, view.Apply(shared.NewEnrollmentActivatedEvent("enr-1", "stud-1", "course-1", "pay-1", now)))
	require.NoError(t, view.Apply(shared.NewEnrollmentActivatedEvent("enr-2", "stud-1", "course-2", "pay-2", now)))

	summary, ok := view.Get("stud-1")
	require.True(t, ok)
	assert.Equal(t, 2, summary.ActiveCourses)

	require.NoError(t, view.Apply(shared.NewEnrollmentCompletedEvent("enr-1", "stud-1", "course-1", now)))
	require.NoError(t, view.Apply(shared.NewEnrollmentCancelledEvent("enr-2", "stud-1", "course-2", "refund")))

	summary, ok = view.Get("stud-1")
	require.True(t, ok)
	assert.Equal(t, 0, summary.ActiveCourses)
	assert.Equal(t, 1, summary.CompletedCourses)
	assert.Equal(t, 1, summary.CancelledCourses)
}

func TestStudentSummaryView_Counters(t *testing.T) {
	view := NewStudentSummaryView()

	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)))
	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-1", "course-1", "l2", 2, 3)))
	require.NoError(t, view.Apply(shared.NewPaymentFailedEvent("pay-1", "enr-1", "stud-1", "card declined")))
	require.NoError(t, view.Apply(shared.NewCertificateIssuedEvent("cert-1", "stud-1", "course-1", "LS-2026-A1B2C3D4")))

	summary, ok := view.Get("stud-1")
	require.True(t, ok)
	assert.Equal(t, 2, summary.LessonsCompleted)
	assert.Equal(t, 1, summary.FailedPayments)
	assert.Equal(t, 1, summary.Certificates)
	assert.False(t, summary.LastCertificateAt.IsZero())
	assert.False(t, summary.LastActivity.IsZero())
}

func TestStudentSummaryView_StudentsAreIndependent(t *testing.T) {
	view := NewStudentSummaryView()

	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)))
	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-2", "course-1", "l1", 1, 3)))

	assert.Equal(t, 2, view.Size())

	first, _ := view.Get("stud-1")
	second, _ := view.Get("stud-2")
	assert.Equal(t, 1, first.LessonsCompleted)
	assert.Equal(t, 1, second.LessonsCompleted)
}

func TestStudentSummaryView_UnknownStudentAndEvent(t *testing.T) {
	view := NewStudentSummaryView()

	_, ok := view.Get("nobody")
	assert.False(t, ok)

	// Events the view does not track are ignored without error.
	require.NoError(t, view.Apply(shared.NewStudentRegisteredEvent("stud-1", "aigerim@example.com", "Aigerim")))
	assert.Equal(t, 0, view.Size())
	assert.Equal(t, int64(0), view.Version())
}

func TestStudentSummaryView_VersionAndActiveSince(t *testing.T) {
	view := NewStudentSummaryView()
	cutoff := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)))
	require.NoError(t, view.Apply(shared.NewLessonCompletedEvent("stud-1", "course-1", "l2", 2, 3)))

	assert.Equal(t, int64(2), view.Version())
	assert.False(t, view.LastUpdated().IsZero())

	active := view.ActiveSince(cutoff)
	require.Len(t, active, 1)
	assert.Equal(t, "stud-1", active[0].StudentID)

	assert.Empty(t, view.ActiveSince(time.Now().UTC().Add(time.Hour)))
}
