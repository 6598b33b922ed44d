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
// PROCESS PAYMENT COMMAND
// The payment reconciler: charges the external gateway and translates the
// outcome into enrollment state. A declined or failed charge leaves the
// enrollment in PendingPayment so the student can retry with another card.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessPaymentCommand contains the data to pay for an enrollment.
type ProcessPaymentCommand struct {
	// EnrollmentID is the enrollment being paid for.
	EnrollmentID string

	// Card contains the card details forwarded to the gateway.
	Card payment.Card

	// AmountCents is the amount the client intends to pay. It must match
	// the enrollment price exactly.
	AmountCents int64

	// Currency is the ISO 4217 code of the amount.
	Currency string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ProcessPaymentCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("process_payment: enrollment_id is required")
	}
	if c.AmountCents <= 0 {
		return errors.New("process_payment: amount must be positive")
	}
	if err := c.Card.Validate(); err != nil {
		return err
	}
	return nil
}

// ProcessPaymentResult contains the outcome of a payment attempt.
//
// A gateway decline is a persisted business outcome, not a handler error:
// the result carries Succeeded=false and the decline reason, and the
// enrollment stays pending.
type ProcessPaymentResult struct {
	// PaymentID is the ID of the recorded payment attempt.
	PaymentID string

	// Succeeded is true when the gateway confirmed the charge.
	Succeeded bool

	// TransactionID is the gateway transaction ID (on success).
	TransactionID string

	// FailureReason is the decline or failure reason (on failure).
	FailureReason string

	// EnrollmentStatus is the enrollment status after the attempt.
	EnrollmentStatus enrollment.Status
}

// GatewayTimeout bounds a single gateway round-trip. A timeout is treated as
// payment failure, not enrollment failure; retrying is safe because the
// handler re-checks enrollment state before acting.
const GatewayTimeout = 15 * time.Second

// ProcessPaymentHandler handles the ProcessPaymentCommand.
type ProcessPaymentHandler struct {
	enrollmentRepo enrollment.Repository
	paymentRepo    payment.Repository
	gateway        payment.Gateway
	eventPublisher shared.EventPublisher
	newID          func() string
	gatewayTimeout time.Duration
}

// NewProcessPaymentHandler creates a new ProcessPaymentHandler.
func NewProcessPaymentHandler(
	enrollmentRepo enrollment.Repository,
	paymentRepo payment.Repository,
	gateway payment.Gateway,
	eventPublisher shared.EventPublisher,
	newID func() string,
) *ProcessPaymentHandler {
	return &ProcessPaymentHandler{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		newID:          newID,
		gatewayTimeout: GatewayTimeout,
	}
}

// Handle executes the process payment command.
func (h *ProcessPaymentHandler) Handle(ctx context.Context, cmd ProcessPaymentCommand) (*ProcessPaymentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("payment", "Process", shared.ErrInvalidInput, "validation failed", err)
	}

	enr, err := h.enrollmentRepo.GetByID(ctx, cmd.EnrollmentID)
	if err != nil {
		return nil, err
	}

	// The gateway is never contacted for an enrollment that is not awaiting
	// payment.
	if enr.Status != enrollment.StatusPendingPayment {
		return nil, shared.ErrPaymentNotPending
	}

	amount, err := shared.NewMoney(cmd.AmountCents, cmd.Currency)
	if err != nil {
		return nil, err
	}
	if !amount.Equals(enr.Price) {
		return nil, shared.NewDomainError("payment", "Process", shared.ErrInvalidInput,
			"amount does not match enrollment price")
	}

	pay, err := payment.NewPayment(h.newID(), enr.StudentID, enr.ID, amount)
	if err != nil {
		return nil, err
	}
	if err := h.paymentRepo.Create(ctx, pay); err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, h.gatewayTimeout)
	defer cancel()

	charge, gwErr := h.gateway.Charge(gwCtx, payment.ChargeRequest{
		PaymentID:   pay.ID,
		AmountCents: amount.Cents,
		Currency:    amount.Currency,
		Card:        cmd.Card,
	})

	switch {
	case gwErr != nil:
		// Network errors and timeouts are fallible I/O, never dropped
		// silently: the attempt is persisted as failed with a generic
		// reason and the student may retry.
		return h.recordFailure(ctx, pay, enr, "payment provider unavailable, please retry", cmd.CorrelationID)
	case !charge.Success:
		reason := charge.DeclineReason
		if reason == "" {
			reason = "payment declined"
		}
		return h.recordFailure(ctx, pay, enr, reason, cmd.CorrelationID)
	}

	if err := pay.MarkSucceeded(charge.TransactionID); err != nil {
		return nil, err
	}
	if err := h.paymentRepo.Update(ctx, pay); err != nil {
		return nil, err
	}

	var activated bool
	updated, err := updateEnrollmentWithRetry(ctx, h.enrollmentRepo, enr.ID, func(e *enrollment.Enrollment) error {
		changed, aErr := e.Activate(pay.ID, time.Now())
		activated = changed
		return aErr
	})
	if err != nil {
		return nil, err
	}

	succeededEvent := shared.NewPaymentSucceededEvent(pay.ID, enr.ID, enr.StudentID, amount.Cents, amount.Currency, charge.TransactionID)
	succeededEvent.BaseEvent = succeededEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	publishEvent(h.eventPublisher, succeededEvent)

	if activated {
		activatedAt := time.Now().UTC()
		if updated.ActivationDate != nil {
			activatedAt = *updated.ActivationDate
		}
		activatedEvent := shared.NewEnrollmentActivatedEvent(updated.ID, updated.StudentID, updated.CourseID, pay.ID, activatedAt)
		activatedEvent.BaseEvent = activatedEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		publishEvent(h.eventPublisher, activatedEvent)
	}

	return &ProcessPaymentResult{
		PaymentID:        pay.ID,
		Succeeded:        true,
		TransactionID:    charge.TransactionID,
		EnrollmentStatus: updated.Status,
	}, nil
}

// recordFailure persists a failed payment attempt and reports it as a
// non-error outcome. The enrollment is left untouched in PendingPayment.
func (h *ProcessPaymentHandler) recordFailure(
	ctx context.Context,
	pay *payment.Payment,
	enr *enrollment.Enrollment,
	reason string,
	correlationID string,
) (*ProcessPaymentResult, error) {
	if err := pay.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := h.paymentRepo.Update(ctx, pay); err != nil {
		return nil, err
	}

	event := shared.NewPaymentFailedEvent(pay.ID, enr.ID, enr.StudentID, reason)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	publishEvent(h.eventPublisher, event)

	return &ProcessPaymentResult{
		PaymentID:        pay.ID,
		Succeeded:        false,
		FailureReason:    reason,
		EnrollmentStatus: enrollment.StatusPendingPayment,
	}, nil
}
