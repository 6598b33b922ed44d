package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH CATALOG JOB
// ══════════════════════════════════════════════════════════════════════════════

// CatalogInvalidator is the cache side of the refresh: dropping a course
// entry so the next read goes to the catalog service.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, courseID string) error
}

// RefreshCatalogJob re-warms cached course data for courses that have active
// enrollments, so progress reads see fresh lesson counts without paying the
// catalog round-trip.
type RefreshCatalogJob struct {
	enrollmentRepo enrollment.Repository
	catalog        course.Catalog
	invalidator    CatalogInvalidator
	logger         *slog.Logger
}

// NewRefreshCatalogJob creates a new RefreshCatalogJob. The catalog given
// here should be the caching decorator, so reads after invalidation repopulate
// the cache.
func NewRefreshCatalogJob(
	enrollmentRepo enrollment.Repository,
	catalog course.Catalog,
	invalidator CatalogInvalidator,
	logger *slog.Logger,
) *RefreshCatalogJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshCatalogJob{
		enrollmentRepo: enrollmentRepo,
		catalog:        catalog,
		invalidator:    invalidator,
		logger:         logger.With("job", "refresh_catalog"),
	}
}

// Name returns the unique job name.
func (j *RefreshCatalogJob) Name() string {
	return "refresh_catalog"
}

// Description returns a human-readable description.
func (j *RefreshCatalogJob) Description() string {
	return "Re-warm cached course data for active enrollments"
}

// Run refreshes course data for every course with an active enrollment.
func (j *RefreshCatalogJob) Run(ctx context.Context) error {
	courseIDs, err := j.enrollmentRepo.ListActiveCourseIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active course ids: %w", err)
	}

	var failed int
	for _, courseID := range courseIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if j.invalidator != nil {
			if err := j.invalidator.Invalidate(ctx, courseID); err != nil {
				j.logger.Warn("failed to invalidate course cache",
					"course_id", courseID,
					"error", err,
				)
			}
		}

		if _, err := j.catalog.GetCourse(ctx, courseID); err != nil {
			failed++
			j.logger.Warn("failed to refresh course",
				"course_id", courseID,
				"error", err,
			)
			continue
		}

		if _, err := j.catalog.GetLessonCount(ctx, courseID); err != nil {
			failed++
			j.logger.Warn("failed to refresh lesson count",
				"course_id", courseID,
				"error", err,
			)
		}
	}

	j.logger.Info("catalog refresh pass finished",
		"courses", len(courseIDs),
		"failed", failed,
	)

	if failed > 0 {
		return fmt.Errorf("catalog refresh failed for %d of %d courses", failed, len(courseIDs))
	}

	return nil
}
