package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PaymentRepository implements payment.Repository for PostgreSQL.
type PaymentRepository struct {
	conn *Connection
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(conn *Connection) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

const paymentColumns = `
	id, student_id, enrollment_id, amount_cents, currency, status,
	transaction_id, failure_reason, refund_reason, created_at, updated_at
`

// Create creates a new payment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			id, student_id, enrollment_id, amount_cents, currency, status,
			transaction_id, failure_reason, refund_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID,
		p.StudentID,
		p.EnrollmentID,
		p.Amount.Cents,
		p.Amount.Currency,
		string(p.Status),
		p.TransactionID,
		p.FailureReason,
		p.RefundReason,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID returns a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	return r.scanPayment(r.conn.QueryRow(ctx, query, id))
}

// ListByEnrollment returns all payment attempts for an enrollment, newest first.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE enrollment_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var result []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// Update saves a modified payment.
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments SET
			status = $1,
			transaction_id = $2,
			failure_reason = $3,
			refund_reason = $4,
			updated_at = $5
		WHERE id = $6
	`

	tag, err := r.conn.Exec(ctx, query,
		string(p.Status),
		p.TransactionID,
		p.FailureReason,
		p.RefundReason,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPaymentNotFound
	}

	return nil
}

// ListPendingOlderThan returns payments stuck in pending created before cutoff.
func (r *PaymentRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(payment.StatusPending), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var result []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

// scanPayment scans a single payment row.
func (r *PaymentRepository) scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	var status string
	var cents int64
	var currency string

	err := row.Scan(
		&p.ID,
		&p.StudentID,
		&p.EnrollmentID,
		&cents,
		&currency,
		&status,
		&p.TransactionID,
		&p.FailureReason,
		&p.RefundReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Amount = shared.Money{Cents: cents, Currency: currency}
	p.Status = payment.Status(status)
	return &p, nil
}
