package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
//
// Updates use optimistic locking on the version column: the UPDATE matches
// both id and the version the caller loaded, and bumps the version on
// success. A zero-row result on an existing enrollment means a concurrent
// commit won.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `
	id, student_id, course_id, price_cents, currency, status,
	enrollment_date, activation_date, completion_date, payment_id,
	cancel_reason, version, updated_at
`

// Create creates a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (
			id, student_id, course_id, price_cents, currency, status,
			enrollment_date, activation_date, completion_date, payment_id,
			cancel_reason, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID,
		e.StudentID,
		e.CourseID,
		e.Price.Cents,
		e.Price.Currency,
		string(e.Status),
		e.EnrollmentDate,
		e.ActivationDate,
		e.CompletionDate,
		e.PaymentID,
		e.CancelReason,
		e.Version,
		e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetByID returns an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	return r.scanEnrollment(r.conn.QueryRow(ctx, query, id))
}

// GetByStudentAndCourse returns the non-cancelled enrollment of a student in
// a course. The partial unique index guarantees at most one such row.
func (r *EnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2 AND status != 'cancelled'
	`

	return r.scanEnrollment(r.conn.QueryRow(ctx, query, studentID, courseID))
}

// ListByStudent returns all enrollments of a student, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1
		ORDER BY enrollment_date DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var result []*enrollment.Enrollment
	for rows.Next() {
		e, err := r.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	return result, rows.Err()
}

// Update saves the enrollment, guarded by its version.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		UPDATE enrollments SET
			status = $1,
			activation_date = $2,
			completion_date = $3,
			payment_id = $4,
			cancel_reason = $5,
			version = version + 1,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`

	tag, err := r.conn.Exec(ctx, query,
		string(e.Status),
		e.ActivationDate,
		e.CompletionDate,
		e.PaymentID,
		e.CancelReason,
		time.Now().UTC(),
		e.ID,
		e.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a lost version race.
		var exists bool
		err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE id = $1)`, e.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check enrollment existence: %w", err)
		}
		if !exists {
			return shared.ErrEnrollmentNotFound
		}
		return shared.ErrConcurrentModification
	}

	e.Version++
	return nil
}

// ListPendingPaymentOlderThan returns unpaid enrollments created before cutoff.
func (r *EnrollmentRepository) ListPendingPaymentOlderThan(ctx context.Context, cutoff time.Time) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE status = $1 AND enrollment_date < $2
		ORDER BY enrollment_date ASC
	`

	rows, err := r.conn.Query(ctx, query, string(enrollment.StatusPendingPayment), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending enrollments: %w", err)
	}
	defer rows.Close()

	var result []*enrollment.Enrollment
	for rows.Next() {
		e, err := r.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	return result, rows.Err()
}

// ListActiveCourseIDs returns distinct course IDs with at least one active
// enrollment.
func (r *EnrollmentRepository) ListActiveCourseIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT course_id
		FROM enrollments
		WHERE status = $1
		ORDER BY course_id
	`

	rows, err := r.conn.Query(ctx, query, string(enrollment.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active course ids: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		result = append(result, id)
	}

	return result, rows.Err()
}

// scanEnrollment scans a single enrollment row.
func (r *EnrollmentRepository) scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	var status string
	var cents int64
	var currency string

	err := row.Scan(
		&e.ID,
		&e.StudentID,
		&e.CourseID,
		&cents,
		&currency,
		&status,
		&e.EnrollmentDate,
		&e.ActivationDate,
		&e.CompletionDate,
		&e.PaymentID,
		&e.CancelReason,
		&e.Version,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	e.Price = shared.Money{Cents: cents, Currency: currency}
	e.Status = enrollment.Status(status)
	return &e, nil
}
