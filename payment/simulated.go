// Package payment provides PaymentGateway implementations: an in-process
// simulator for development and tests, and a Midtrans Core API adapter.
package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"library-catalog/library"
)

// Payment statuses reported by VerifyPaymentStatus.
const (
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
	StatusNotFound  = "not_found"
)

// simulatedLimit is the largest single charge the simulator accepts.
var simulatedLimit = decimal.NewFromInt(1000)

// PaymentStatus describes a transaction known to the simulator.
type PaymentStatus struct {
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	Message       string          `json:"message,omitempty"`
}

type ledgerEntry struct {
	patronID string
	amount   decimal.Decimal
	at       time.Time
	refunded bool
}

// SimulatedGateway approves any well-formed charge up to $1000 and keeps an
// in-memory ledger of what it processed.
type SimulatedGateway struct {
	// Latency delays each call, letting callers exercise their timeouts.
	Latency time.Duration

	now    func() time.Time
	mu     sync.Mutex
	ledger map[string]*ledgerEntry
}

var _ library.PaymentGateway = (*SimulatedGateway)(nil)

// NewSimulatedGateway returns a simulator using now for transaction ids, or
// time.Now when now is nil.
func NewSimulatedGateway(now func() time.Time) *SimulatedGateway {
	if now == nil {
		now = time.Now
	}
	return &SimulatedGateway{now: now, ledger: make(map[string]*ledgerEntry)}
}

func (g *SimulatedGateway) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "payment gateway unreachable")
	}
	if g.Latency <= 0 {
		return nil
	}
	t := time.NewTimer(g.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "payment gateway unreachable")
	case <-t.C:
		return nil
	}
}

func (g *SimulatedGateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (library.ChargeResult, error) {
	if err := g.wait(ctx); err != nil {
		return library.ChargeResult{}, err
	}
	switch {
	case !amount.IsPositive():
		return library.ChargeResult{Message: "Invalid amount: must be greater than 0"}, nil
	case amount.GreaterThan(simulatedLimit):
		return library.ChargeResult{Message: "Payment declined: amount exceeds limit"}, nil
	case len(patronID) != 6:
		return library.ChargeResult{Message: "Invalid patron ID format"}, nil
	}

	now := g.now()
	txn := fmt.Sprintf("%s%s_%d", library.TransactionPrefix, patronID, now.Unix())

	g.mu.Lock()
	g.ledger[txn] = &ledgerEntry{patronID: patronID, amount: amount, at: now}
	g.mu.Unlock()

	return library.ChargeResult{
		Success:       true,
		TransactionID: txn,
		Message:       fmt.Sprintf("Payment of $%s processed successfully", amount.StringFixed(2)),
	}, nil
}

func (g *SimulatedGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (library.RefundResult, error) {
	if err := g.wait(ctx); err != nil {
		return library.RefundResult{}, err
	}
	if !strings.HasPrefix(transactionID, library.TransactionPrefix) {
		return library.RefundResult{Message: "Invalid transaction ID"}, nil
	}
	if !amount.IsPositive() {
		return library.RefundResult{Message: "Invalid refund amount"}, nil
	}

	now := g.now()
	g.mu.Lock()
	if e, ok := g.ledger[transactionID]; ok {
		e.refunded = true
	}
	g.mu.Unlock()

	refundID := fmt.Sprintf("refund_%s_%d", transactionID, now.Unix())
	return library.RefundResult{
		Success: true,
		Message: fmt.Sprintf("Refund of $%s processed successfully. Refund ID: %s", amount.StringFixed(2), refundID),
	}, nil
}

// VerifyPaymentStatus looks a transaction up in the ledger.
func (g *SimulatedGateway) VerifyPaymentStatus(transactionID string) PaymentStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.ledger[transactionID]
	if !strings.HasPrefix(transactionID, library.TransactionPrefix) || !ok {
		return PaymentStatus{Status: StatusNotFound, Amount: decimal.Zero, Message: "Transaction not found"}
	}
	status := StatusCompleted
	if e.refunded {
		status = StatusRefunded
	}
	return PaymentStatus{
		TransactionID: transactionID,
		Status:        status,
		Amount:        e.amount,
		Timestamp:     e.at,
	}
}
