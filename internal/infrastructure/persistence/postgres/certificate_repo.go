package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/certificate"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CertificateRepository implements certificate.Repository for PostgreSQL.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

const certificateColumns = `
	id, student_id, course_id, title, number, issue_date, score, feedback
`

// Create saves a new certificate.
// The unique index on (student_id, course_id) turns a concurrent double
// issuance into shared.ErrCertificateExists for the loser.
func (r *CertificateRepository) Create(ctx context.Context, c *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (id, student_id, course_id, title, number, issue_date, score, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.StudentID,
		c.CourseID,
		c.Title,
		c.Number.String(),
		c.IssueDate,
		c.Score,
		c.Feedback,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCertificateExists
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// GetByStudentAndCourse returns the certificate for a (student, course) pair.
func (r *CertificateRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*certificate.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE student_id = $1 AND course_id = $2
	`

	return r.scanCertificate(r.conn.QueryRow(ctx, query, studentID, courseID))
}

// ListByStudent returns all certificates of a student, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]*certificate.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE student_id = $1
		ORDER BY issue_date DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var result []*certificate.Certificate
	for rows.Next() {
		c, err := r.scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

// scanCertificate scans a single certificate row.
func (r *CertificateRepository) scanCertificate(row pgx.Row) (*certificate.Certificate, error) {
	var c certificate.Certificate
	var number string

	err := row.Scan(
		&c.ID,
		&c.StudentID,
		&c.CourseID,
		&c.Title,
		&number,
		&c.IssueDate,
		&c.Score,
		&c.Feedback,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to scan certificate: %w", err)
	}

	c.Number = shared.CertificateNumber(number)
	return &c, nil
}
