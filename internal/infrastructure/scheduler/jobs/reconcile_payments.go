// Package jobs contains the scheduled maintenance jobs of the school backend.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/service"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE PAYMENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReconcilePaymentsJob settles payments stuck in the pending state.
type ReconcilePaymentsJob struct {
	reconciler *service.PaymentReconciler
	logger     *slog.Logger

	// PendingAge is how long a payment may stay pending before it is
	// considered lost.
	pendingAge time.Duration
}

// NewReconcilePaymentsJob creates a new ReconcilePaymentsJob.
func NewReconcilePaymentsJob(reconciler *service.PaymentReconciler, pendingAge time.Duration, logger *slog.Logger) *ReconcilePaymentsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilePaymentsJob{
		reconciler: reconciler,
		pendingAge: pendingAge,
		logger:     logger.With("job", "reconcile_payments"),
	}
}

// Name returns the unique job name.
func (j *ReconcilePaymentsJob) Name() string {
	return "reconcile_payments"
}

// Description returns a human-readable description.
func (j *ReconcilePaymentsJob) Description() string {
	return "Settle payments stuck in pending as failed"
}

// Run executes one reconciliation pass.
func (j *ReconcilePaymentsJob) Run(ctx context.Context) error {
	report, err := j.reconciler.ReconcilePendingPayments(ctx, j.pendingAge)
	if err != nil {
		return fmt.Errorf("reconcile pending payments: %w", err)
	}

	if report.Examined > 0 {
		j.logger.Info("payment reconciliation pass finished",
			"examined", report.Examined,
			"settled", report.Settled,
			"failed", report.Failed,
		)
	}

	if report.Failed > 0 {
		return fmt.Errorf("reconciliation left %d of %d payments unsettled", report.Failed, report.Examined)
	}

	return nil
}
