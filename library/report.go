package library

import (
	"context"

	"github.com/shopspring/decimal"
)

const patronValid = "Valid patron"

// PatronStatus summarizes a patron's outstanding loans and the late fees
// accrued on them. Returned books are not included.
func (lm *LibraryManager) PatronStatus(ctx context.Context, patronID string) (PatronStatus, error) {
	if !ValidatePatronID(patronID) {
		return PatronStatus{Status: string(FeeInvalidPatron)}, nil
	}

	loans, err := lm.store.GetPatronBorrowedBooks(ctx, patronID)
	if err != nil {
		return PatronStatus{}, err
	}

	now := lm.now()
	summary := &PatronSummary{
		PatronID:      patronID,
		TotalLateFees: decimal.Zero,
		BorrowedBooks: make([]BorrowedBook, 0, len(loans)),
	}
	for _, l := range loans {
		fee := lateFee(now, l.DueDate)
		summary.TotalLateFees = summary.TotalLateFees.Add(fee.FeeAmount)
		summary.BorrowedBooks = append(summary.BorrowedBooks, BorrowedBook{
			BookID:     l.BookID,
			Title:      l.Title,
			Author:     l.Author,
			BorrowDate: l.BorrowDate.Format(dateLayout),
			DueDate:    l.DueDate.Format(dateLayout),
			IsOverdue:  fee.Status == FeeOverdue,
			LateFee:    fee.FeeAmount,
		})
	}
	summary.TotalBooksBorrowed = len(summary.BorrowedBooks)

	return PatronStatus{Status: patronValid, PatronSummary: summary}, nil
}
