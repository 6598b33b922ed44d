package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

func registerTestStudent(t *testing.T, repo *memStudentRepo, id string) *student.Student {
	t.Helper()
	stud, err := student.NewStudent(student.NewStudentParams{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Student " + id,
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), stud))
	return stud
}

func TestEnrollStudent(t *testing.T) {
	studentRepo := newMemStudentRepo()
	enrollmentRepo := newMemEnrollmentRepo()
	catalog := newStubCatalog()
	publisher := &capturePublisher{}

	registerTestStudent(t, studentRepo, "stud-1")
	catalog.addCourse("course-1", "Kazakh A1", 12, 14900)

	h := NewEnrollStudentHandler(studentRepo, enrollmentRepo, catalog, publisher, seqIDGen("enr"))

	res, err := h.Handle(context.Background(), EnrollStudentCommand{
		StudentID: "stud-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, enrollment.StatusPendingPayment, res.Status)
	assert.Equal(t, int64(14900), res.Price.Cents)
	assert.Equal(t, "EUR", res.Price.Currency)

	stored, err := enrollmentRepo.GetByID(context.Background(), res.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPendingPayment, stored.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventStudentEnrolled, publisher.events[0].EventType())
}

func TestEnrollStudent_InactiveStudent(t *testing.T) {
	studentRepo := newMemStudentRepo()
	catalog := newStubCatalog()
	catalog.addCourse("course-1", "Kazakh A1", 12, 14900)

	stud := registerTestStudent(t, studentRepo, "stud-1")
	require.NoError(t, stud.Deactivate())
	require.NoError(t, studentRepo.Update(context.Background(), stud))

	h := NewEnrollStudentHandler(studentRepo, newMemEnrollmentRepo(), catalog, &capturePublisher{}, seqIDGen("enr"))

	_, err := h.Handle(context.Background(), EnrollStudentCommand{StudentID: "stud-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, shared.ErrStudentInactive)
}

func TestEnrollStudent_Duplicate(t *testing.T) {
	studentRepo := newMemStudentRepo()
	enrollmentRepo := newMemEnrollmentRepo()
	catalog := newStubCatalog()
	publisher := &capturePublisher{}

	registerTestStudent(t, studentRepo, "stud-1")
	catalog.addCourse("course-1", "Kazakh A1", 12, 14900)

	h := NewEnrollStudentHandler(studentRepo, enrollmentRepo, catalog, publisher, seqIDGen("enr"))
	cmd := EnrollStudentCommand{StudentID: "stud-1", CourseID: "course-1"}

	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)
	assert.Len(t, publisher.events, 1)
}

func TestEnrollStudent_CourseNotFound(t *testing.T) {
	studentRepo := newMemStudentRepo()
	registerTestStudent(t, studentRepo, "stud-1")

	h := NewEnrollStudentHandler(studentRepo, newMemEnrollmentRepo(), newStubCatalog(), &capturePublisher{}, seqIDGen("enr"))

	_, err := h.Handle(context.Background(), EnrollStudentCommand{StudentID: "stud-1", CourseID: "missing"})
	assert.True(t, shared.IsNotFound(err))
}

func TestEnrollStudent_ReEnrollAfterCancellation(t *testing.T) {
	studentRepo := newMemStudentRepo()
	enrollmentRepo := newMemEnrollmentRepo()
	catalog := newStubCatalog()

	registerTestStudent(t, studentRepo, "stud-1")
	catalog.addCourse("course-1", "Kazakh A1", 12, 14900)

	h := NewEnrollStudentHandler(studentRepo, enrollmentRepo, catalog, &capturePublisher{}, seqIDGen("enr"))
	cmd := EnrollStudentCommand{StudentID: "stud-1", CourseID: "course-1"}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	// Cancel the first enrollment; a fresh one is then allowed.
	enr, err := enrollmentRepo.GetByID(context.Background(), first.EnrollmentID)
	require.NoError(t, err)
	require.NoError(t, enr.Cancel("changed my mind"))
	require.NoError(t, enrollmentRepo.Update(context.Background(), enr))

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.NotEqual(t, first.EnrollmentID, second.EnrollmentID)
}
