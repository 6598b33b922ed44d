package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	amount, err := shared.NewMoney(14900, "EUR")
	require.NoError(t, err)

	p, err := NewPayment("pay-1", "stud-1", "enr-1", amount)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t)

	assert.Equal(t, StatusPending, p.Status)
	assert.Empty(t, p.TransactionID)
	assert.False(t, p.IsSuccessful())
}

func TestNewPayment_Validation(t *testing.T) {
	amount, _ := shared.NewMoney(100, "EUR")

	_, err := NewPayment("", "stud-1", "enr-1", amount)
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = NewPayment("pay-1", "", "enr-1", amount)
	assert.ErrorIs(t, err, ErrEmptyStudentID)

	_, err = NewPayment("pay-1", "stud-1", "", amount)
	assert.ErrorIs(t, err, ErrEmptyEnrollmentID)
}

func TestPayment_MarkSucceeded(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.MarkSucceeded("txn-42"))
	assert.Equal(t, StatusSuccessful, p.Status)
	assert.Equal(t, "txn-42", p.TransactionID)
	assert.True(t, p.IsSuccessful())
}

func TestPayment_MarkSucceeded_RequiresPending(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkSucceeded("txn-42"))

	assert.ErrorIs(t, p.MarkSucceeded("txn-43"), ErrNotPending)
	assert.Equal(t, "txn-42", p.TransactionID)
}

func TestPayment_MarkSucceeded_RequiresTransactionID(t *testing.T) {
	p := newTestPayment(t)
	assert.ErrorIs(t, p.MarkSucceeded(""), ErrEmptyTransactionID)
	assert.Equal(t, StatusPending, p.Status)
}

func TestPayment_MarkFailed(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.MarkFailed("insufficient funds"))
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.FailureReason)
}

func TestPayment_MarkFailed_DefaultReason(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.MarkFailed(""))
	assert.Equal(t, "payment failed", p.FailureReason)
}

func TestPayment_MarkRefunded(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkSucceeded("txn-42"))

	require.NoError(t, p.MarkRefunded("course cancelled"))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.Equal(t, "course cancelled", p.RefundReason)
	assert.False(t, p.IsSuccessful())
}

func TestPayment_MarkRefunded_Twice(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkSucceeded("txn-42"))
	require.NoError(t, p.MarkRefunded("course cancelled"))

	// A second refund is a conflict, not an idempotent no-op.
	err := p.MarkRefunded("again")
	assert.ErrorIs(t, err, shared.ErrAlreadyRefunded)
	assert.Equal(t, "course cancelled", p.RefundReason)
}

func TestPayment_MarkRefunded_OnlySuccessful(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkFailed("declined"))

	assert.ErrorIs(t, p.MarkRefunded("reason"), shared.ErrPaymentNotRefundable)
}

func TestPayment_MarkRefunded_RequiresReason(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.MarkSucceeded("txn-42"))

	assert.ErrorIs(t, p.MarkRefunded(""), ErrEmptyRefundReason)
	assert.Equal(t, StatusSuccessful, p.Status)
}

func TestCard_Validate(t *testing.T) {
	valid := Card{
		Number:      "4242 4242 4242 4242",
		HolderName:  "AIGERIM S",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVC:         "123",
	}
	assert.NoError(t, valid.Validate())

	short := valid
	short.Number = "4242"
	assert.ErrorIs(t, short.Validate(), ErrInvalidCard)

	letters := valid
	letters.Number = "4242abcd42424242"
	assert.ErrorIs(t, letters.Validate(), ErrInvalidCard)

	badMonth := valid
	badMonth.ExpiryMonth = 13
	assert.ErrorIs(t, badMonth.Validate(), ErrInvalidCard)

	badCVC := valid
	badCVC.CVC = "12"
	assert.ErrorIs(t, badCVC.Validate(), ErrInvalidCard)
}

func TestCard_LastFour(t *testing.T) {
	c := Card{Number: "4242 4242 4242 4242"}
	assert.Equal(t, "4242", c.LastFour())

	assert.Equal(t, "", Card{Number: "42"}.LastFour())
}
