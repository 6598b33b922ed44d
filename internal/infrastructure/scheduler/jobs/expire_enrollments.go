package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/infrastructure/service"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE ENROLLMENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireEnrollmentsJob cancels enrollments that stayed unpaid past their TTL.
type ExpireEnrollmentsJob struct {
	reconciler *service.PaymentReconciler
	logger     *slog.Logger

	// ttl is how long an enrollment may wait for payment.
	ttl time.Duration
}

// NewExpireEnrollmentsJob creates a new ExpireEnrollmentsJob.
func NewExpireEnrollmentsJob(reconciler *service.PaymentReconciler, ttl time.Duration, logger *slog.Logger) *ExpireEnrollmentsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireEnrollmentsJob{
		reconciler: reconciler,
		ttl:        ttl,
		logger:     logger.With("job", "expire_enrollments"),
	}
}

// Name returns the unique job name.
func (j *ExpireEnrollmentsJob) Name() string {
	return "expire_enrollments"
}

// Description returns a human-readable description.
func (j *ExpireEnrollmentsJob) Description() string {
	return "Cancel enrollments unpaid past their deadline"
}

// Run executes one expiry pass.
func (j *ExpireEnrollmentsJob) Run(ctx context.Context) error {
	report, err := j.reconciler.ExpireUnpaidEnrollments(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("expire unpaid enrollments: %w", err)
	}

	if report.Examined > 0 {
		j.logger.Info("enrollment expiry pass finished",
			"examined", report.Examined,
			"cancelled", report.Settled,
			"failed", report.Failed,
		)
	}

	if report.Failed > 0 {
		return fmt.Errorf("expiry left %d of %d enrollments unsettled", report.Failed, report.Examined)
	}

	return nil
}
