package payment

import (
	"context"
	"errors"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT GATEWAY COLLABORATOR
// Интерфейс внешнего платёжного провайдера. Реализация (HTTP-клиент с
// таймаутом, ретраями и circuit breaker) находится в
// infrastructure/external/paygate.
// ══════════════════════════════════════════════════════════════════════════════

// Card содержит платёжные реквизиты карты. Полный номер карты нигде не
// сохраняется - только последние четыре цифры попадают в логи и чеки.
type Card struct {
	Number      string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	CVC         string
}

var (
	// ErrInvalidCard - реквизиты карты не прошли базовую проверку.
	ErrInvalidCard = errors.New("payment: invalid card details")
)

// Validate выполняет базовую проверку реквизитов. Полная верификация -
// обязанность шлюза.
func (c Card) Validate() error {
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return ErrInvalidCard
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ErrInvalidCard
		}
	}
	if c.ExpiryMonth < 1 || c.ExpiryMonth > 12 {
		return ErrInvalidCard
	}
	if len(c.CVC) < 3 || len(c.CVC) > 4 {
		return ErrInvalidCard
	}
	return nil
}

// LastFour возвращает последние четыре цифры номера карты.
func (c Card) LastFour() string {
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// ChargeRequest - запрос на списание.
type ChargeRequest struct {
	// PaymentID используется как ключ идемпотентности на стороне шлюза.
	PaymentID   string
	AmountCents int64
	Currency    string
	Card        Card
}

// ChargeResult - исход списания.
type ChargeResult struct {
	// Success - true, если шлюз подтвердил списание.
	Success bool

	// TransactionID - идентификатор транзакции (при успехе).
	TransactionID string

	// DeclineReason - причина отказа (при неуспехе).
	DeclineReason string
}

// RefundResult - исход возврата.
type RefundResult struct {
	Success  bool
	RefundID string
	Reason   string
}

// Gateway определяет контракт платёжного шлюза.
//
// Все вызовы - обычный fallible I/O: сетевые ошибки и таймауты возвращаются
// как error и трактуются вызывающей стороной как неуспех платежа, который
// можно безопасно повторить.
type Gateway interface {
	// Charge выполняет списание средств.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Refund выполняет возврат по идентификатору транзакции.
	Refund(ctx context.Context, transactionID string, amountCents int64, currency string) (*RefundResult, error)
}
