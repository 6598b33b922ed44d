package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
//
// The ledger is append-only. Idempotency is carried by ON CONFLICT DO NOTHING
// against the unique indexes, so concurrent writers of the same fact both
// succeed and exactly one row exists afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// EnsureHistory returns the learning history of a student, creating it on
// first use. The history id equals the student id.
func (r *ProgressRepository) EnsureHistory(ctx context.Context, studentID string) (*progress.LearningHistory, error) {
	insert := `
		INSERT INTO learning_histories (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.conn.Exec(ctx, insert, studentID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to ensure learning history: %w", err)
	}

	var h progress.LearningHistory
	err := r.conn.QueryRow(ctx, `SELECT id, created_at FROM learning_histories WHERE id = $1`, studentID).
		Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load learning history: %w", err)
	}
	h.StudentID = h.ID

	return &h, nil
}

// EnsureCourseProgress returns the course progress of a student, creating it
// on first use. Lessons are not loaded.
func (r *ProgressRepository) EnsureCourseProgress(ctx context.Context, studentID, courseID string) (*progress.CourseProgress, error) {
	insert := `
		INSERT INTO course_progress (id, learning_history_id, course_id, is_completed, last_updated)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (learning_history_id, course_id) DO NOTHING
	`
	if _, err := r.conn.Exec(ctx, insert, uuid.NewString(), studentID, courseID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to ensure course progress: %w", err)
	}

	query := `
		SELECT id, learning_history_id, course_id, is_completed, last_updated
		FROM course_progress
		WHERE learning_history_id = $1 AND course_id = $2
	`

	var cp progress.CourseProgress
	err := r.conn.QueryRow(ctx, query, studentID, courseID).Scan(
		&cp.ID,
		&cp.LearningHistoryID,
		&cp.CourseID,
		&cp.IsCompleted,
		&cp.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load course progress: %w", err)
	}

	return &cp, nil
}

// GetCourseProgress returns the course progress with its lessons loaded.
func (r *ProgressRepository) GetCourseProgress(ctx context.Context, studentID, courseID string) (*progress.CourseProgress, error) {
	query := `
		SELECT id, learning_history_id, course_id, is_completed, last_updated
		FROM course_progress
		WHERE learning_history_id = $1 AND course_id = $2
	`

	var cp progress.CourseProgress
	err := r.conn.QueryRow(ctx, query, studentID, courseID).Scan(
		&cp.ID,
		&cp.LearningHistoryID,
		&cp.CourseID,
		&cp.IsCompleted,
		&cp.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to load course progress: %w", err)
	}

	lessonsQuery := `
		SELECT id, lesson_id, course_progress_id, completed_at
		FROM completed_lessons
		WHERE course_progress_id = $1
		ORDER BY completed_at
	`

	rows, err := r.conn.Query(ctx, lessonsQuery, cp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l progress.CompletedLesson
		if err := rows.Scan(&l.ID, &l.LessonID, &l.CourseProgressID, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed lesson: %w", err)
		}
		cp.Lessons = append(cp.Lessons, l)
	}

	return &cp, rows.Err()
}

// AppendCompletedLesson appends a lesson completion fact.
// Returns inserted=false without error when the lesson was already recorded.
func (r *ProgressRepository) AppendCompletedLesson(ctx context.Context, lesson progress.CompletedLesson) (bool, error) {
	query := `
		INSERT INTO completed_lessons (id, course_progress_id, lesson_id, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_progress_id, lesson_id) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query,
		lesson.ID,
		lesson.CourseProgressID,
		lesson.LessonID,
		lesson.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append completed lesson: %w", err)
	}

	inserted := tag.RowsAffected() > 0
	if inserted {
		touch := `UPDATE course_progress SET last_updated = $1 WHERE id = $2`
		if _, err := r.conn.Exec(ctx, touch, time.Now().UTC(), lesson.CourseProgressID); err != nil {
			return true, fmt.Errorf("failed to touch course progress: %w", err)
		}
	}

	return inserted, nil
}

// CountCompleted returns the number of completed lessons in a course.
func (r *ProgressRepository) CountCompleted(ctx context.Context, studentID, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM completed_lessons cl
		JOIN course_progress cp ON cp.id = cl.course_progress_id
		WHERE cp.learning_history_id = $1 AND cp.course_id = $2
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, studentID, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	return count, nil
}

// ListCompletedLessonIDs returns the IDs of completed lessons in a course.
func (r *ProgressRepository) ListCompletedLessonIDs(ctx context.Context, studentID, courseID string) ([]string, error) {
	query := `
		SELECT cl.lesson_id
		FROM completed_lessons cl
		JOIN course_progress cp ON cp.id = cl.course_progress_id
		WHERE cp.learning_history_id = $1 AND cp.course_id = $2
		ORDER BY cl.completed_at
	`

	rows, err := r.conn.Query(ctx, query, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed lessons: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// MarkCourseCompleted marks the course progress as completed. Idempotent.
func (r *ProgressRepository) MarkCourseCompleted(ctx context.Context, studentID, courseID string) error {
	if _, err := r.EnsureCourseProgress(ctx, studentID, courseID); err != nil {
		return err
	}

	query := `
		UPDATE course_progress
		SET is_completed = TRUE, last_updated = $1
		WHERE learning_history_id = $2 AND course_id = $3 AND is_completed = FALSE
	`

	if _, err := r.conn.Exec(ctx, query, time.Now().UTC(), studentID, courseID); err != nil {
		return fmt.Errorf("failed to mark course completed: %w", err)
	}

	return nil
}

// ListCourseSummaries returns the per-course progress summary of a student.
func (r *ProgressRepository) ListCourseSummaries(ctx context.Context, studentID string) ([]progress.CourseSummary, error) {
	query := `
		SELECT cp.course_id,
		       COUNT(cl.id),
		       cp.is_completed,
		       cp.last_updated
		FROM course_progress cp
		LEFT JOIN completed_lessons cl ON cl.course_progress_id = cp.id
		WHERE cp.learning_history_id = $1
		GROUP BY cp.course_id, cp.is_completed, cp.last_updated
		ORDER BY cp.last_updated DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course summaries: %w", err)
	}
	defer rows.Close()

	var summaries []progress.CourseSummary
	for rows.Next() {
		var s progress.CourseSummary
		if err := rows.Scan(&s.CourseID, &s.CompletedCount, &s.IsCompleted, &s.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan course summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
