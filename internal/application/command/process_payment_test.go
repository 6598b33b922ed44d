package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func validCard() payment.Card {
	return payment.Card{
		Number:      "4242424242424242",
		HolderName:  "AIGERIM S",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVC:         "123",
	}
}

func pendingEnrollment(t *testing.T, repo *memEnrollmentRepo) *enrollment.Enrollment {
	t.Helper()
	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	enr, err := enrollment.NewEnrollment("enr-1", "stud-1", "course-1", price)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), enr))
	return enr
}

func TestProcessPayment_Success(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	paymentRepo := newMemPaymentRepo()
	gateway := &stubGateway{chargeResult: &payment.ChargeResult{Success: true, TransactionID: "txn-42"}}
	publisher := &capturePublisher{}

	pendingEnrollment(t, enrollmentRepo)

	h := NewProcessPaymentHandler(enrollmentRepo, paymentRepo, gateway, publisher, seqIDGen("pay"))

	res, err := h.Handle(context.Background(), ProcessPaymentCommand{
		EnrollmentID: "enr-1",
		Card:         validCard(),
		AmountCents:  14900,
		Currency:     "EUR",
	})
	require.NoError(t, err)

	assert.True(t, res.Succeeded)
	assert.Equal(t, "txn-42", res.TransactionID)
	assert.Equal(t, enrollment.StatusActive, res.EnrollmentStatus)

	pay, err := paymentRepo.GetByID(context.Background(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccessful, pay.Status)

	enr, err := enrollmentRepo.GetByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, enr.Status)
	require.NotNil(t, enr.PaymentID)
	assert.Equal(t, res.PaymentID, *enr.PaymentID)

	assert.Equal(t,
		[]shared.EventType{shared.EventPaymentSucceeded, shared.EventEnrollmentActivated},
		publisher.eventTypes())
}

func TestProcessPayment_Declined(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	paymentRepo := newMemPaymentRepo()
	gateway := &stubGateway{chargeResult: &payment.ChargeResult{Success: false, DeclineReason: "insufficient funds"}}
	publisher := &capturePublisher{}

	pendingEnrollment(t, enrollmentRepo)

	h := NewProcessPaymentHandler(enrollmentRepo, paymentRepo, gateway, publisher, seqIDGen("pay"))

	// A decline is a recorded outcome, not a handler error.
	res, err := h.Handle(context.Background(), ProcessPaymentCommand{
		EnrollmentID: "enr-1",
		Card:         validCard(),
		AmountCents:  14900,
		Currency:     "EUR",
	})
	require.NoError(t, err)

	assert.False(t, res.Succeeded)
	assert.Equal(t, "insufficient funds", res.FailureReason)
	assert.Equal(t, enrollment.StatusPendingPayment, res.EnrollmentStatus)

	pay, err := paymentRepo.GetByID(context.Background(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, pay.Status)

	// The enrollment stays pending so the student can retry.
	enr, err := enrollmentRepo.GetByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPendingPayment, enr.Status)

	assert.Equal(t, []shared.EventType{shared.EventPaymentFailed}, publisher.eventTypes())
}

func TestProcessPayment_GatewayError(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	paymentRepo := newMemPaymentRepo()
	gateway := &stubGateway{chargeErr: errors.New("connection refused")}
	publisher := &capturePublisher{}

	pendingEnrollment(t, enrollmentRepo)

	h := NewProcessPaymentHandler(enrollmentRepo, paymentRepo, gateway, publisher, seqIDGen("pay"))

	res, err := h.Handle(context.Background(), ProcessPaymentCommand{
		EnrollmentID: "enr-1",
		Card:         validCard(),
		AmountCents:  14900,
		Currency:     "EUR",
	})
	require.NoError(t, err)

	// The attempt is persisted as failed, never dropped silently.
	assert.False(t, res.Succeeded)
	pay, err := paymentRepo.GetByID(context.Background(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, pay.Status)
	assert.NotEmpty(t, pay.FailureReason)
}

func TestProcessPayment_AmountMismatch(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	gateway := &stubGateway{chargeResult: &payment.ChargeResult{Success: true, TransactionID: "txn-42"}}

	pendingEnrollment(t, enrollmentRepo)

	h := NewProcessPaymentHandler(enrollmentRepo, newMemPaymentRepo(), gateway, &capturePublisher{}, seqIDGen("pay"))

	_, err := h.Handle(context.Background(), ProcessPaymentCommand{
		EnrollmentID: "enr-1",
		Card:         validCard(),
		AmountCents:  9900,
		Currency:     "EUR",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidationError(err))
	assert.Zero(t, gateway.chargeCalls)
}

func TestProcessPayment_EnrollmentNotPending(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	gateway := &stubGateway{chargeResult: &payment.ChargeResult{Success: true, TransactionID: "txn-42"}}

	enr := pendingEnrollment(t, enrollmentRepo)
	_, err := enr.Activate("pay-0", enr.EnrollmentDate)
	require.NoError(t, err)
	require.NoError(t, enrollmentRepo.Update(context.Background(), enr))

	h := NewProcessPaymentHandler(enrollmentRepo, newMemPaymentRepo(), gateway, &capturePublisher{}, seqIDGen("pay"))

	_, err = h.Handle(context.Background(), ProcessPaymentCommand{
		EnrollmentID: "enr-1",
		Card:         validCard(),
		AmountCents:  14900,
		Currency:     "EUR",
	})
	assert.ErrorIs(t, err, shared.ErrPaymentNotPending)
	assert.Zero(t, gateway.chargeCalls)
}
