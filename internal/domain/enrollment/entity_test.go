package enrollment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func newTestEnrollment(t *testing.T) *Enrollment {
	t.Helper()
	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)

	e, err := NewEnrollment("enr-1", "stud-1", "course-1", price)
	require.NoError(t, err)
	return e
}

func TestNewEnrollment(t *testing.T) {
	e := newTestEnrollment(t)

	assert.Equal(t, StatusPendingPayment, e.Status)
	assert.Equal(t, 1, e.Version)
	assert.Nil(t, e.ActivationDate)
	assert.Nil(t, e.PaymentID)
	assert.False(t, e.EnrollmentDate.IsZero())
}

func TestNewEnrollment_Validation(t *testing.T) {
	price, _ := shared.NewMoney(100, "EUR")

	_, err := NewEnrollment("", "stud-1", "course-1", price)
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = NewEnrollment("enr-1", "", "course-1", price)
	assert.ErrorIs(t, err, ErrEmptyStudentID)

	_, err = NewEnrollment("enr-1", "stud-1", "", price)
	assert.ErrorIs(t, err, ErrEmptyCourseID)
}

func TestEnrollment_Activate(t *testing.T) {
	e := newTestEnrollment(t)
	at := time.Now()

	changed, err := e.Activate("pay-1", at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusActive, e.Status)
	require.NotNil(t, e.PaymentID)
	assert.Equal(t, "pay-1", *e.PaymentID)
	require.NotNil(t, e.ActivationDate)
	assert.True(t, e.IsActive())
}

func TestEnrollment_Activate_Idempotent(t *testing.T) {
	e := newTestEnrollment(t)

	_, err := e.Activate("pay-1", time.Now())
	require.NoError(t, err)

	// Second activation is a no-op, not an error.
	changed, err := e.Activate("pay-2", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "pay-1", *e.PaymentID)
}

func TestEnrollment_Activate_FromTerminal(t *testing.T) {
	e := newTestEnrollment(t)
	require.NoError(t, e.Cancel("changed my mind"))

	_, err := e.Activate("pay-1", time.Now())
	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.ErrorIs(t, err, ErrNotPendingPayment)
}

func TestEnrollment_Complete(t *testing.T) {
	e := newTestEnrollment(t)
	_, err := e.Activate("pay-1", time.Now())
	require.NoError(t, err)

	require.NoError(t, e.Complete(time.Now()))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.NotNil(t, e.CompletionDate)
	assert.True(t, e.Status.IsTerminal())
}

func TestEnrollment_Complete_RequiresActive(t *testing.T) {
	e := newTestEnrollment(t)

	err := e.Complete(time.Now())
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, StatusPendingPayment, e.Status)
}

func TestEnrollment_Cancel(t *testing.T) {
	e := newTestEnrollment(t)

	require.NoError(t, e.Cancel("payment deadline expired"))
	assert.Equal(t, StatusCancelled, e.Status)
	assert.Equal(t, "payment deadline expired", e.CancelReason)
}

func TestEnrollment_Cancel_FromActive(t *testing.T) {
	e := newTestEnrollment(t)
	_, err := e.Activate("pay-1", time.Now())
	require.NoError(t, err)

	require.NoError(t, e.Cancel("payment refunded"))
	assert.Equal(t, StatusCancelled, e.Status)
}

func TestEnrollment_Cancel_RequiresReason(t *testing.T) {
	e := newTestEnrollment(t)
	assert.ErrorIs(t, e.Cancel(""), ErrEmptyCancelReason)
}

func TestEnrollment_Cancel_FromTerminal(t *testing.T) {
	e := newTestEnrollment(t)
	require.NoError(t, e.Cancel("first"))

	err := e.Cancel("second")
	assert.True(t, errors.Is(err, ErrTerminalState))
	assert.Equal(t, "first", e.CancelReason)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPendingPayment.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.False(t, Status("paused").IsValid())
}
