package messaging

import (
	"fmt"

	"github.com/lingua-hub/lingua-school-backend/internal/application/eventhandler"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/persistence/projections"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRY
// Binds the application event handlers to their event types. Certificate
// issuance is the only handler that must not be lost, so it runs with more
// retries than the notification senders.
// ══════════════════════════════════════════════════════════════════════════════

// EventHandlers groups the application event handlers wired at startup.
type EventHandlers struct {
	OnEnrollmentActivated *eventhandler.OnEnrollmentActivatedHandler
	OnEnrollmentCompleted *eventhandler.OnEnrollmentCompletedHandler
	OnCertificateIssued   *eventhandler.OnCertificateIssuedHandler
	OnPaymentFailed       *eventhandler.OnPaymentFailedHandler

	// StudentSummary, when set, folds every relevant event into the
	// in-memory read model.
	StudentSummary *projections.StudentSummaryView
}

// RegisterEventHandlers subscribes the application handlers on the dispatcher.
func RegisterEventHandlers(d *Dispatcher, h EventHandlers) error {
	if h.OnEnrollmentActivated != nil {
		if err := d.Register(shared.EventEnrollmentActivated, "enrollment-activated-notifier", h.OnEnrollmentActivated.Handle); err != nil {
			return fmt.Errorf("register enrollment activated handler: %w", err)
		}
	}

	if h.OnEnrollmentCompleted != nil {
		// Issues the certificate; idempotent, so generous retries are safe.
		if err := d.RegisterHandler(shared.EventEnrollmentCompleted, HandlerRegistration{
			Name:       "certificate-issuer",
			Handler:    h.OnEnrollmentCompleted.Handle,
			Async:      true,
			MaxRetries: 5,
		}); err != nil {
			return fmt.Errorf("register enrollment completed handler: %w", err)
		}
	}

	if h.OnCertificateIssued != nil {
		if err := d.Register(shared.EventCertificateIssued, "certificate-issued-notifier", h.OnCertificateIssued.Handle); err != nil {
			return fmt.Errorf("register certificate issued handler: %w", err)
		}
	}

	if h.OnPaymentFailed != nil {
		if err := d.Register(shared.EventPaymentFailed, "payment-failed-notifier", h.OnPaymentFailed.Handle); err != nil {
			return fmt.Errorf("register payment failed handler: %w", err)
		}
	}

	if h.StudentSummary != nil {
		summaryEvents := []shared.EventType{
			shared.EventEnrollmentActivated,
			shared.EventEnrollmentCompleted,
			shared.EventEnrollmentCancelled,
			shared.EventPaymentFailed,
			shared.EventLessonCompleted,
			shared.EventCertificateIssued,
		}
		for _, et := range summaryEvents {
			if err := d.Register(et, "student-summary-projection", h.StudentSummary.Apply); err != nil {
				return fmt.Errorf("register student summary projection for %s: %w", et, err)
			}
		}
	}

	return nil
}
