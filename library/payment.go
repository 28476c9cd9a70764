package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxRefundAmount is the largest refund accepted for a late fee payment.
var MaxRefundAmount = decimal.RequireFromString("15.00")

// TransactionPrefix starts every transaction id issued by a gateway.
const TransactionPrefix = "txn_"

// ChargeResult is a gateway's answer to a payment request.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

// RefundResult is a gateway's answer to a refund request.
type RefundResult struct {
	Success bool
	Message string
}

// PaymentGateway is the external payment processor. A returned error means
// the gateway could not be reached or failed outright; a declined request
// is reported through the result with Success set to false.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (ChargeResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (RefundResult, error)
}

func payFail(kind FailureKind, msg string) PaymentOutcome {
	return PaymentOutcome{Message: msg, Kind: kind}
}

// PayLateFees charges the late fee owed on the patron's loan of bookID.
// The gateway is called exactly once when a positive fee is owed and never
// otherwise.
func (lm *LibraryManager) PayLateFees(ctx context.Context, patronID string, bookID int64, gw PaymentGateway) (PaymentOutcome, error) {
	if !ValidatePatronID(patronID) {
		return payFail(FailureValidation, msgInvalidPatron), nil
	}

	book, err := lm.store.GetBookByID(ctx, bookID)
	if errors.Is(err, ErrRecordNotFound) {
		return payFail(FailureNotFound, msgBookNotFound), nil
	}
	if err != nil {
		return PaymentOutcome{}, fmt.Errorf("lookup book %d: %w", bookID, err)
	}

	fee, err := lm.CalculateLateFee(ctx, patronID, bookID)
	if err == nil && fee.FeeAmount.IsNegative() {
		err = fmt.Errorf("negative fee %s", fee.FeeAmount)
	}
	if err != nil {
		lm.logger.PrintError(err, map[string]string{
			"patron_id": patronID,
			"book_id":   fmt.Sprint(bookID),
			"op":        "calculate_late_fee",
		})
		return payFail(FailureCalculation, "Unable to calculate late fees."), nil
	}
	if fee.FeeAmount.IsZero() {
		return payFail(FailureRule, "No late fees to pay for this book."), nil
	}

	props := map[string]string{
		"patron_id": patronID,
		"book_id":   fmt.Sprint(bookID),
		"amount":    fee.FeeAmount.StringFixed(2),
	}
	res, err := gw.ProcessPayment(ctx, patronID, fee.FeeAmount, fmt.Sprintf("Late fees for '%s'", book.Title))
	if err != nil {
		lm.logger.PrintError(err, props)
		return payFail(FailureGateway, "Payment processing error: "+err.Error()), nil
	}
	if !res.Success {
		props["reason"] = res.Message
		lm.logger.PrintInfo("payment declined", props)
		return payFail(FailureDeclined, "Payment failed: "+res.Message), nil
	}

	props["transaction_id"] = res.TransactionID
	lm.logger.PrintInfo("late fee paid", props)
	return PaymentOutcome{
		Success:       true,
		Message:       "Payment successful! " + res.Message,
		TransactionID: res.TransactionID,
	}, nil
}

// RefundLateFeePayment refunds part or all of a late fee payment. Malformed
// ids and amounts outside (0, MaxRefundAmount] are rejected before the
// gateway is contacted.
func (lm *LibraryManager) RefundLateFeePayment(ctx context.Context, transactionID string, amount decimal.Decimal, gw PaymentGateway) Outcome {
	switch {
	case transactionID == "" || !strings.HasPrefix(transactionID, TransactionPrefix):
		return fail(FailureValidation, "Invalid transaction ID.")
	case !amount.IsPositive():
		return fail(FailureValidation, "Refund amount must be greater than 0.")
	case amount.GreaterThan(MaxRefundAmount):
		return fail(FailureRule, fmt.Sprintf("Refund amount exceeds maximum late fee of $%s.", MaxRefundAmount.StringFixed(2)))
	}

	props := map[string]string{
		"transaction_id": transactionID,
		"amount":         amount.StringFixed(2),
	}
	res, err := gw.RefundPayment(ctx, transactionID, amount)
	if err != nil {
		lm.logger.PrintError(err, props)
		return fail(FailureGateway, "Refund processing error: "+err.Error())
	}
	if !res.Success {
		props["reason"] = res.Message
		lm.logger.PrintInfo("refund declined", props)
		return fail(FailureDeclined, "Refund failed: "+res.Message)
	}

	lm.logger.PrintInfo("late fee refunded", props)
	return succeed(res.Message)
}
