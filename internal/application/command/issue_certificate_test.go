package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// uuidLikeIDGen yields UUID-shaped IDs whose first block is 8 hex digits,
// as needed for the certificate serial number.
func uuidLikeIDGen() func() string {
	ids := []string{
		"a1b2c3d4-0000-0000-0000-000000000001",
		"e5f60718-0000-0000-0000-000000000002",
	}
	n := 0
	return func() string {
		id := ids[n%len(ids)]
		n++
		return id
	}
}

func certificateSetup(t *testing.T, status enrollment.Status) (*memEnrollmentRepo, *memCertificateRepo, *stubCatalog) {
	t.Helper()
	ctx := context.Background()

	enrollmentRepo := newMemEnrollmentRepo()
	certificateRepo := newMemCertificateRepo()
	catalog := newStubCatalog()
	catalog.addCourse("course-1", "Kazakh A1", 3, 14900)

	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	enr, err := enrollment.NewEnrollment("enr-1", "stud-1", "course-1", price)
	require.NoError(t, err)
	if status != enrollment.StatusPendingPayment {
		_, err = enr.Activate("pay-1", enr.EnrollmentDate)
		require.NoError(t, err)
	}
	if status == enrollment.StatusCompleted {
		require.NoError(t, enr.Complete(enr.EnrollmentDate))
	}
	require.NoError(t, enrollmentRepo.Create(ctx, enr))

	return enrollmentRepo, certificateRepo, catalog
}

func TestIssueCertificate(t *testing.T) {
	enrollmentRepo, certificateRepo, catalog := certificateSetup(t, enrollment.StatusCompleted)
	publisher := &capturePublisher{}

	h := NewIssueCertificateHandler(enrollmentRepo, certificateRepo, catalog, publisher, uuidLikeIDGen())

	score := 87
	res, err := h.Handle(context.Background(), IssueCertificateCommand{
		StudentID: "stud-1",
		CourseID:  "course-1",
		Score:     &score,
		Feedback:  "Жарайсың!",
	})
	require.NoError(t, err)

	assert.False(t, res.AlreadyIssued)
	assert.True(t, res.Number.IsValid(), "number %q should match the serial format", res.Number)
	assert.False(t, res.IssueDate.IsZero())

	cert, err := certificateRepo.GetByStudentAndCourse(context.Background(), "stud-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, "Kazakh A1", cert.Title)
	require.NotNil(t, cert.Score)
	assert.Equal(t, 87, *cert.Score)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventCertificateIssued, publisher.events[0].EventType())
}

func TestIssueCertificate_Idempotent(t *testing.T) {
	enrollmentRepo, certificateRepo, catalog := certificateSetup(t, enrollment.StatusCompleted)
	publisher := &capturePublisher{}

	h := NewIssueCertificateHandler(enrollmentRepo, certificateRepo, catalog, publisher, uuidLikeIDGen())
	cmd := IssueCertificateCommand{StudentID: "stud-1", CourseID: "course-1"}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	assert.True(t, second.AlreadyIssued)
	assert.Equal(t, first.CertificateID, second.CertificateID)
	assert.Equal(t, first.Number, second.Number)

	// Only the first issuance publishes an event.
	assert.Len(t, publisher.events, 1)
}

func TestIssueCertificate_SerialYearUsesSchoolClock(t *testing.T) {
	enrollmentRepo, certificateRepo, catalog := certificateSetup(t, enrollment.StatusCompleted)

	h := NewIssueCertificateHandler(enrollmentRepo, certificateRepo, catalog, &capturePublisher{}, uuidLikeIDGen())
	// 20:30 UTC on New Year's Eve is already next year in Almaty (UTC+5).
	h.now = func() time.Time {
		return time.Date(2026, time.December, 31, 20, 30, 0, 0, time.UTC)
	}

	res, err := h.Handle(context.Background(), IssueCertificateCommand{StudentID: "stud-1", CourseID: "course-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Number.String(), "LS-2027-"), "number %q", res.Number)
}

func TestIssueCertificate_CourseNotCompleted(t *testing.T) {
	enrollmentRepo, certificateRepo, catalog := certificateSetup(t, enrollment.StatusActive)

	h := NewIssueCertificateHandler(enrollmentRepo, certificateRepo, catalog, &capturePublisher{}, uuidLikeIDGen())

	_, err := h.Handle(context.Background(), IssueCertificateCommand{StudentID: "stud-1", CourseID: "course-1"})
	assert.ErrorIs(t, err, shared.ErrCourseNotCompleted)
}

func TestIssueCertificate_InvalidScore(t *testing.T) {
	enrollmentRepo, certificateRepo, catalog := certificateSetup(t, enrollment.StatusCompleted)

	h := NewIssueCertificateHandler(enrollmentRepo, certificateRepo, catalog, &capturePublisher{}, uuidLikeIDGen())

	score := 101
	_, err := h.Handle(context.Background(), IssueCertificateCommand{
		StudentID: "stud-1", CourseID: "course-1", Score: &score,
	})
	assert.True(t, shared.IsValidationError(err))
}
