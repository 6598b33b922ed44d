// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// defaultMaxUpdateAttempts bounds the optimistic-concurrency retry loop.
// Commits on the same enrollment serialize through the version column;
// a version mismatch means another request won the race, so we reload
// and re-apply the transition against fresh state.
const defaultMaxUpdateAttempts = 3

// updateEnrollmentWithRetry loads the enrollment, applies mutate and saves it,
// retrying a bounded number of times on concurrent modification.
//
// mutate is applied to freshly loaded state on every attempt, so transitions
// that became no-ops or illegal after a concurrent commit are re-evaluated
// rather than blindly re-written.
func updateEnrollmentWithRetry(
	ctx context.Context,
	repo enrollment.Repository,
	enrollmentID string,
	mutate func(*enrollment.Enrollment) error,
) (*enrollment.Enrollment, error) {
	var lastErr error

	for attempt := 0; attempt < defaultMaxUpdateAttempts; attempt++ {
		e, err := repo.GetByID(ctx, enrollmentID)
		if err != nil {
			return nil, err
		}

		if err := mutate(e); err != nil {
			return nil, err
		}

		err = repo.Update(ctx, e)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, shared.ErrConcurrentModification) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("enrollment %s: update retries exhausted: %w", enrollmentID, lastErr)
}
