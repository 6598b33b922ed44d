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

// paidSetup seeds an active enrollment with its successful payment.
func paidSetup(t *testing.T) (*memEnrollmentRepo, *memPaymentRepo) {
	t.Helper()
	ctx := context.Background()

	enrollmentRepo := newMemEnrollmentRepo()
	paymentRepo := newMemPaymentRepo()

	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)

	enr, err := enrollment.NewEnrollment("enr-1", "stud-1", "course-1", price)
	require.NoError(t, err)
	require.NoError(t, enrollmentRepo.Create(ctx, enr))

	pay, err := payment.NewPayment("pay-1", "stud-1", "enr-1", price)
	require.NoError(t, err)
	require.NoError(t, pay.MarkSucceeded("txn-42"))
	require.NoError(t, paymentRepo.Create(ctx, pay))

	_, err = enr.Activate("pay-1", enr.EnrollmentDate)
	require.NoError(t, err)
	require.NoError(t, enrollmentRepo.Update(ctx, enr))

	return enrollmentRepo, paymentRepo
}

func TestRefundPayment(t *testing.T) {
	enrollmentRepo, paymentRepo := paidSetup(t)
	gateway := &stubGateway{refundResult: &payment.RefundResult{Success: true, RefundID: "ref-1"}}
	publisher := &capturePublisher{}

	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, publisher, true)

	res, err := h.Handle(context.Background(), RefundPaymentCommand{
		PaymentID: "pay-1",
		Reason:    "student request",
	})
	require.NoError(t, err)

	assert.Equal(t, "ref-1", res.RefundID)
	assert.True(t, res.EnrollmentCancelled)

	pay, err := paymentRepo.GetByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, pay.Status)
	assert.Equal(t, "student request", pay.RefundReason)

	enr, err := enrollmentRepo.GetByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCancelled, enr.Status)

	assert.Equal(t,
		[]shared.EventType{shared.EventPaymentRefunded, shared.EventEnrollmentCancelled},
		publisher.eventTypes())
}

func TestRefundPayment_KeepEnrollment(t *testing.T) {
	enrollmentRepo, paymentRepo := paidSetup(t)
	gateway := &stubGateway{refundResult: &payment.RefundResult{Success: true, RefundID: "ref-1"}}

	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, &capturePublisher{}, false)

	res, err := h.Handle(context.Background(), RefundPaymentCommand{PaymentID: "pay-1", Reason: "goodwill"})
	require.NoError(t, err)
	assert.False(t, res.EnrollmentCancelled)

	enr, err := enrollmentRepo.GetByID(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusActive, enr.Status)
}

func TestRefundPayment_Twice(t *testing.T) {
	enrollmentRepo, paymentRepo := paidSetup(t)
	gateway := &stubGateway{refundResult: &payment.RefundResult{Success: true, RefundID: "ref-1"}}

	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, &capturePublisher{}, true)
	cmd := RefundPaymentCommand{PaymentID: "pay-1", Reason: "student request"}

	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyRefunded)
	assert.Equal(t, 1, gateway.refundCalls)
}

func TestRefundPayment_NotRefundable(t *testing.T) {
	enrollmentRepo := newMemEnrollmentRepo()
	paymentRepo := newMemPaymentRepo()

	price, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)
	pay, err := payment.NewPayment("pay-1", "stud-1", "enr-1", price)
	require.NoError(t, err)
	require.NoError(t, pay.MarkFailed("declined"))
	require.NoError(t, paymentRepo.Create(context.Background(), pay))

	gateway := &stubGateway{}
	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, &capturePublisher{}, true)

	_, err = h.Handle(context.Background(), RefundPaymentCommand{PaymentID: "pay-1", Reason: "r"})
	assert.ErrorIs(t, err, shared.ErrPaymentNotRefundable)
	assert.Zero(t, gateway.refundCalls)
}

func TestRefundPayment_GatewayError(t *testing.T) {
	enrollmentRepo, paymentRepo := paidSetup(t)
	gateway := &stubGateway{refundErr: errors.New("connection reset")}

	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, &capturePublisher{}, true)

	_, err := h.Handle(context.Background(), RefundPaymentCommand{PaymentID: "pay-1", Reason: "r"})
	require.Error(t, err)
	assert.True(t, shared.IsGatewayError(err))

	// A failed refund call changes nothing; the operator retries.
	pay, err := paymentRepo.GetByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccessful, pay.Status)
}

func TestRefundPayment_CompletedEnrollmentStays(t *testing.T) {
	enrollmentRepo, paymentRepo := paidSetup(t)
	gateway := &stubGateway{refundResult: &payment.RefundResult{Success: true, RefundID: "ref-1"}}

	ctx := context.Background()
	enr, err := enrollmentRepo.GetByID(ctx, "enr-1")
	require.NoError(t, err)
	require.NoError(t, enr.Complete(enr.EnrollmentDate))
	require.NoError(t, enrollmentRepo.Update(ctx, enr))

	h := NewRefundPaymentHandler(paymentRepo, enrollmentRepo, gateway, &capturePublisher{}, true)

	res, err := h.Handle(ctx, RefundPaymentCommand{PaymentID: "pay-1", Reason: "goodwill"})
	require.NoError(t, err)

	// The refund goes through but a terminal enrollment is left untouched.
	assert.False(t, res.EnrollmentCancelled)
	enr, err = enrollmentRepo.GetByID(ctx, "enr-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, enr.Status)
}
