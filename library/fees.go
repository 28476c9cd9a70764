package library

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LateFeePerDay is charged for every whole day past the due date.
var LateFeePerDay = decimal.RequireFromString("0.50")

// CalculateLateFee reports the fee owed on the patron's outstanding loan of
// bookID. It never writes to the store.
func (lm *LibraryManager) CalculateLateFee(ctx context.Context, patronID string, bookID int64) (FeeResult, error) {
	if !ValidatePatronID(patronID) {
		return FeeResult{FeeAmount: decimal.Zero, Status: FeeInvalidPatron}, nil
	}

	loans, err := lm.store.GetPatronBorrowedBooks(ctx, patronID)
	if err != nil {
		return FeeResult{}, err
	}
	loan := findLoan(loans, bookID)
	if loan == nil {
		return FeeResult{FeeAmount: decimal.Zero, Status: FeeNoActiveRecord}, nil
	}
	return lateFee(lm.now(), loan.DueDate), nil
}

func lateFee(now, due time.Time) FeeResult {
	days := overdueDays(now, due)
	if days == 0 {
		return FeeResult{FeeAmount: decimal.Zero, Status: FeeOnTime}
	}
	return FeeResult{
		FeeAmount:   LateFeePerDay.Mul(decimal.NewFromInt(int64(days))),
		DaysOverdue: days,
		Status:      FeeOverdue,
	}
}

// overdueDays counts whole elapsed days since due, never negative.
func overdueDays(now, due time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}
