package command

import (
	"context"
	"errors"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFUND PAYMENT COMMAND
// Refunds a successful payment through the gateway. A second refund of the
// same payment is a state conflict, not an idempotent no-op.
// ══════════════════════════════════════════════════════════════════════════════

// RefundPaymentCommand contains the data to refund a payment.
type RefundPaymentCommand struct {
	// PaymentID is the payment to refund.
	PaymentID string

	// Reason is the mandatory refund reason.
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RefundPaymentCommand) Validate() error {
	if c.PaymentID == "" {
		return errors.New("refund_payment: payment_id is required")
	}
	if c.Reason == "" {
		return errors.New("refund_payment: reason is required")
	}
	return nil
}

// RefundPaymentResult contains the result of the refund.
type RefundPaymentResult struct {
	// PaymentID is the refunded payment.
	PaymentID string

	// RefundID is the gateway refund reference.
	RefundID string

	// EnrollmentCancelled is true when the refund also cancelled the
	// enrollment (governed by configuration).
	EnrollmentCancelled bool
}

// RefundPaymentHandler handles the RefundPaymentCommand.
type RefundPaymentHandler struct {
	paymentRepo    payment.Repository
	enrollmentRepo enrollment.Repository
	gateway        payment.Gateway
	eventPublisher shared.EventPublisher

	// cancelEnrollment controls whether a refund also cancels the
	// associated enrollment.
	cancelEnrollment bool
	gatewayTimeout   time.Duration
}

// NewRefundPaymentHandler creates a new RefundPaymentHandler.
func NewRefundPaymentHandler(
	paymentRepo payment.Repository,
	enrollmentRepo enrollment.Repository,
	gateway payment.Gateway,
	eventPublisher shared.EventPublisher,
	cancelEnrollment bool,
) *RefundPaymentHandler {
	return &RefundPaymentHandler{
		paymentRepo:      paymentRepo,
		enrollmentRepo:   enrollmentRepo,
		gateway:          gateway,
		eventPublisher:   eventPublisher,
		cancelEnrollment: cancelEnrollment,
		gatewayTimeout:   GatewayTimeout,
	}
}

// Handle executes the refund payment command.
func (h *RefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*RefundPaymentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("payment", "Refund", shared.ErrInvalidInput, "validation failed", err)
	}

	pay, err := h.paymentRepo.GetByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}

	// Fail fast on state before contacting the gateway. The entity enforces
	// the same rules again when the outcome is recorded.
	switch pay.Status {
	case payment.StatusRefunded:
		return nil, shared.ErrAlreadyRefunded
	case payment.StatusSuccessful:
		// refundable
	default:
		return nil, shared.ErrPaymentNotRefundable
	}

	gwCtx, cancel := context.WithTimeout(ctx, h.gatewayTimeout)
	defer cancel()

	refund, err := h.gateway.Refund(gwCtx, pay.TransactionID, pay.Amount.Cents, pay.Amount.Currency)
	if err != nil {
		// The payment stays Successful: a failed refund call changes nothing
		// and the operator retries.
		return nil, shared.WrapError("payment", "Refund", shared.ErrGateway, "refund call failed", err)
	}

	if err := pay.MarkRefunded(cmd.Reason); err != nil {
		return nil, err
	}
	if err := h.paymentRepo.Update(ctx, pay); err != nil {
		return nil, err
	}

	event := shared.NewPaymentRefundedEvent(pay.ID, pay.EnrollmentID, pay.StudentID, cmd.Reason)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, event)

	result := &RefundPaymentResult{
		PaymentID: pay.ID,
		RefundID:  refund.RefundID,
	}

	if h.cancelEnrollment {
		cancelled, err := h.cancelAssociatedEnrollment(ctx, pay, cmd.CorrelationID)
		if err != nil {
			// The refund itself is committed; a cancellation failure is
			// surfaced so the operator can cancel manually.
			return result, err
		}
		result.EnrollmentCancelled = cancelled
	}

	return result, nil
}

// cancelAssociatedEnrollment cancels the enrollment the payment belongs to.
// A terminal enrollment (completed or already cancelled) is left as is.
func (h *RefundPaymentHandler) cancelAssociatedEnrollment(ctx context.Context, pay *payment.Payment, correlationID string) (bool, error) {
	enr, err := h.enrollmentRepo.GetByID(ctx, pay.EnrollmentID)
	if err != nil {
		return false, err
	}
	if enr.Status.IsTerminal() {
		return false, nil
	}

	updated, err := updateEnrollmentWithRetry(ctx, h.enrollmentRepo, pay.EnrollmentID, func(e *enrollment.Enrollment) error {
		return e.Cancel("payment refunded: " + pay.RefundReason)
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvalidState) {
			return false, nil
		}
		return false, err
	}

	event := shared.NewEnrollmentCancelledEvent(updated.ID, updated.StudentID, updated.CourseID, updated.CancelReason)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	publishEvent(h.eventPublisher, event)

	return true, nil
}
