// Package service contains infrastructure services that operate across
// aggregates: maintenance flows invoked by the scheduler rather than by an
// HTTP request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT RECONCILER
// Settles payments stuck in pending and expires unpaid enrollments. A payment
// is pending only between the charge call and the recorded outcome; a pending
// row older than the reconciliation window means the process died mid-charge
// and the gateway answer was lost.
// ══════════════════════════════════════════════════════════════════════════════

// PaymentReconciler closes out stale pending payments and unpaid enrollments.
type PaymentReconciler struct {
	paymentRepo    payment.Repository
	enrollmentRepo enrollment.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewPaymentReconciler creates a new PaymentReconciler.
func NewPaymentReconciler(
	paymentRepo payment.Repository,
	enrollmentRepo enrollment.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *PaymentReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentReconciler{
		paymentRepo:    paymentRepo,
		enrollmentRepo: enrollmentRepo,
		eventPublisher: eventPublisher,
		logger:         logger.With("service", "payment_reconciler"),
	}
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	// Examined is the number of stale records considered.
	Examined int

	// Settled is the number of records moved to a terminal state.
	Settled int

	// Failed is the number of records that could not be settled.
	Failed int
}

// ReconcilePendingPayments marks payments that have been pending longer than
// maxAge as failed. The enrollment stays in pending_payment so the student
// can retry with a fresh charge.
func (s *PaymentReconciler) ReconcilePendingPayments(ctx context.Context, maxAge time.Duration) (ReconcileReport, error) {
	var report ReconcileReport

	cutoff := time.Now().UTC().Add(-maxAge)
	stale, err := s.paymentRepo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("list pending payments: %w", err)
	}

	report.Examined = len(stale)

	for _, pay := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		if err := pay.MarkFailed("reconciliation: gateway outcome was never recorded"); err != nil {
			// Settled concurrently between the list and this iteration.
			s.logger.Debug("skipping payment no longer pending",
				"payment_id", pay.ID,
				"status", string(pay.Status),
			)
			continue
		}

		if err := s.paymentRepo.Update(ctx, pay); err != nil {
			report.Failed++
			s.logger.Error("failed to settle stale payment",
				"payment_id", pay.ID,
				"error", err,
			)
			continue
		}

		event := shared.NewPaymentFailedEvent(pay.ID, pay.EnrollmentID, pay.StudentID, pay.FailureReason)
		if err := s.eventPublisher.Publish(event); err != nil {
			s.logger.Warn("event publish failed",
				"event_type", string(event.EventType()),
				"payment_id", pay.ID,
				"error", err,
			)
		}

		report.Settled++
		s.logger.Info("stale pending payment settled as failed",
			"payment_id", pay.ID,
			"enrollment_id", pay.EnrollmentID,
			"pending_since", pay.CreatedAt.Format(time.RFC3339),
		)
	}

	return report, nil
}

// ExpireUnpaidEnrollments cancels enrollments that stayed in pending_payment
// longer than ttl.
func (s *PaymentReconciler) ExpireUnpaidEnrollments(ctx context.Context, ttl time.Duration) (ReconcileReport, error) {
	var report ReconcileReport

	cutoff := time.Now().UTC().Add(-ttl)
	stale, err := s.enrollmentRepo.ListPendingPaymentOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("list pending enrollments: %w", err)
	}

	report.Examined = len(stale)

	for _, enr := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		if err := enr.Cancel("payment deadline expired"); err != nil {
			// Paid or cancelled between the list and this iteration.
			continue
		}

		if err := s.enrollmentRepo.Update(ctx, enr); err != nil {
			if errors.Is(err, shared.ErrConcurrentModification) {
				// Someone just paid; leave the enrollment alone.
				continue
			}
			report.Failed++
			s.logger.Error("failed to expire enrollment",
				"enrollment_id", enr.ID,
				"error", err,
			)
			continue
		}

		event := shared.NewEnrollmentCancelledEvent(enr.ID, enr.StudentID, enr.CourseID, enr.CancelReason)
		if err := s.eventPublisher.Publish(event); err != nil {
			s.logger.Warn("event publish failed",
				"event_type", string(event.EventType()),
				"enrollment_id", enr.ID,
				"error", err,
			)
		}

		report.Settled++
		s.logger.Info("unpaid enrollment expired",
			"enrollment_id", enr.ID,
			"student_id", enr.StudentID,
			"course_id", enr.CourseID,
		)
	}

	return report, nil
}
