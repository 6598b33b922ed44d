package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ─── test doubles ────────────────────────────────────────────────────────────

type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

type fakePaymentRepo struct {
	payments  map[string]*payment.Payment
	updateErr map[string]error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments:  make(map[string]*payment.Payment),
		updateErr: make(map[string]error),
	}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) ListByEnrollment(_ context.Context, enrollmentID string) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.EnrollmentID == enrollmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if err := r.updateErr[p.ID]; err != nil {
		return err
	}
	if _, ok := r.payments[p.ID]; !ok {
		return shared.ErrPaymentNotFound
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.Status == payment.StatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeEnrollmentRepo struct {
	enrollments map[string]*enrollment.Enrollment
	updateErr   map[string]error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		enrollments: make(map[string]*enrollment.Enrollment),
		updateErr:   make(map[string]error),
	}
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	cp := *e
	r.enrollments[e.ID] = &cp
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(_ context.Context, id string) (*enrollment.Enrollment, error) {
	e, ok := r.enrollments[id]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status != enrollment.StatusCancelled {
			cp := *e
			return &cp, nil
		}
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) ListByStudent(_ context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	if err := r.updateErr[e.ID]; err != nil {
		return err
	}
	if _, ok := r.enrollments[e.ID]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	cp := *e
	r.enrollments[e.ID] = &cp
	return nil
}

func (r *fakeEnrollmentRepo) ListPendingPaymentOlderThan(_ context.Context, cutoff time.Time) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.Status == enrollment.StatusPendingPayment && e.EnrollmentDate.Before(cutoff) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) ListActiveCourseIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.enrollments {
		if e.Status == enrollment.StatusActive && !seen[e.CourseID] {
			seen[e.CourseID] = true
			out = append(out, e.CourseID)
		}
	}
	return out, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func stalePayment(t *testing.T, id string, age time.Duration) *payment.Payment {
	t.Helper()
	amount, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	p, err := payment.NewPayment(id, "stud-1", "enr-"+id, amount)
	require.NoError(t, err)
	p.CreatedAt = time.Now().UTC().Add(-age)
	return p
}

func staleEnrollment(t *testing.T, id string, age time.Duration) *enrollment.Enrollment {
	t.Helper()
	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	e, err := enrollment.NewEnrollment(id, "stud-1", "course-1", price)
	require.NoError(t, err)
	e.EnrollmentDate = time.Now().UTC().Add(-age)
	return e
}

// ─── tests ───────────────────────────────────────────────────────────────────

func TestReconcilePendingPayments(t *testing.T) {
	ctx := context.Background()
	paymentRepo := newFakePaymentRepo()
	enrollmentRepo := newFakeEnrollmentRepo()
	publisher := &recordingPublisher{}

	require.NoError(t, paymentRepo.Create(ctx, stalePayment(t, "pay-old", 2*time.Hour)))
	require.NoError(t, paymentRepo.Create(ctx, stalePayment(t, "pay-fresh", 5*time.Minute)))

	s := NewPaymentReconciler(paymentRepo, enrollmentRepo, publisher, nil)

	report, err := s.ReconcilePendingPayments(ctx, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 0, report.Failed)

	settled, err := paymentRepo.GetByID(ctx, "pay-old")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, settled.Status)
	assert.NotEmpty(t, settled.FailureReason)

	// The fresh pending payment is left for the gateway to resolve.
	fresh, err := paymentRepo.GetByID(ctx, "pay-fresh")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, fresh.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventPaymentFailed, publisher.events[0].EventType())
}

func TestReconcilePendingPayments_UpdateFailure(t *testing.T) {
	ctx := context.Background()
	paymentRepo := newFakePaymentRepo()
	publisher := &recordingPublisher{}

	require.NoError(t, paymentRepo.Create(ctx, stalePayment(t, "pay-old", 2*time.Hour)))
	paymentRepo.updateErr["pay-old"] = errors.New("connection reset")

	s := NewPaymentReconciler(paymentRepo, newFakeEnrollmentRepo(), publisher, nil)

	report, err := s.ReconcilePendingPayments(ctx, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 0, report.Settled)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, publisher.events)
}

func TestReconcilePendingPayments_NothingStale(t *testing.T) {
	s := NewPaymentReconciler(newFakePaymentRepo(), newFakeEnrollmentRepo(), &recordingPublisher{}, nil)

	report, err := s.ReconcilePendingPayments(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, report)
}

func TestExpireUnpaidEnrollments(t *testing.T) {
	ctx := context.Background()
	enrollmentRepo := newFakeEnrollmentRepo()
	publisher := &recordingPublisher{}

	require.NoError(t, enrollmentRepo.Create(ctx, staleEnrollment(t, "enr-old", 72*time.Hour)))
	require.NoError(t, enrollmentRepo.Create(ctx, staleEnrollment(t, "enr-fresh", time.Hour)))

	s := NewPaymentReconciler(newFakePaymentRepo(), enrollmentRepo, publisher, nil)

	report, err := s.ExpireUnpaidEnrollments(ctx, 48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Settled)

	expired, err := enrollmentRepo.GetByID(ctx, "enr-old")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCancelled, expired.Status)
	assert.Equal(t, "payment deadline expired", expired.CancelReason)

	fresh, err := enrollmentRepo.GetByID(ctx, "enr-fresh")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPendingPayment, fresh.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventEnrollmentCancelled, publisher.events[0].EventType())
}

func TestExpireUnpaidEnrollments_ConcurrentPayment(t *testing.T) {
	ctx := context.Background()
	enrollmentRepo := newFakeEnrollmentRepo()
	publisher := &recordingPublisher{}

	require.NoError(t, enrollmentRepo.Create(ctx, staleEnrollment(t, "enr-old", 72*time.Hour)))
	// Simulate a payment landing between the list and the update.
	enrollmentRepo.updateErr["enr-old"] = shared.ErrConcurrentModification

	s := NewPaymentReconciler(newFakePaymentRepo(), enrollmentRepo, publisher, nil)

	report, err := s.ExpireUnpaidEnrollments(ctx, 48*time.Hour)
	require.NoError(t, err)

	// A lost optimistic lock means someone just paid: not a failure.
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 0, report.Settled)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, publisher.events)
}
