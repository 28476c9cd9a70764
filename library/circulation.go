package library

import (
	"context"
	"errors"
	"fmt"
)

const (
	msgInvalidPatron  = "Invalid patron ID. Must be exactly 6 digits."
	msgBookNotFound   = "Book not found."
	msgNoActiveRecord = "No active borrow record found for this book."
)

// BorrowBook lends one copy of bookID to patronID. The availability check,
// limit check, and both writes happen in one transaction.
func (lm *LibraryManager) BorrowBook(ctx context.Context, patronID string, bookID int64) (Outcome, error) {
	if !ValidatePatronID(patronID) {
		return fail(FailureValidation, msgInvalidPatron), nil
	}

	var out Outcome
	err := lm.store.Atomic(ctx, func(tx Store) error {
		book, err := tx.GetBookByID(ctx, bookID)
		if errors.Is(err, ErrRecordNotFound) {
			out = fail(FailureNotFound, msgBookNotFound)
			return nil
		}
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			out = fail(FailureRule, "This book is currently not available.")
			return nil
		}

		count, err := tx.GetPatronBorrowCount(ctx, patronID)
		if err != nil {
			return err
		}
		if count >= MaxActiveLoans {
			out = fail(FailureRule, fmt.Sprintf("You have reached the maximum borrowing limit of %d books.", MaxActiveLoans))
			return nil
		}

		loans, err := tx.GetPatronBorrowedBooks(ctx, patronID)
		if err != nil {
			return err
		}
		alreadyBorrowed := fail(FailureRule, "You have already borrowed this book.")
		if findLoan(loans, bookID) != nil {
			out = alreadyBorrowed
			return nil
		}

		now := lm.now()
		due := now.AddDate(0, 0, LoanPeriodDays)
		if _, err := tx.InsertBorrowRecord(ctx, patronID, bookID, now, due); err != nil {
			if errors.Is(err, ErrDuplicateRecord) {
				out = alreadyBorrowed
				return nil
			}
			return err
		}
		if err := tx.UpdateBookAvailability(ctx, book.ID, book.AvailableCopies-1); err != nil {
			return err
		}
		out = succeed(fmt.Sprintf("Successfully borrowed \"%s\". Due date: %s.", book.Title, due.Format(dateLayout)))
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("borrow book %d: %w", bookID, err)
	}
	return out, nil
}

// ReturnBook closes the patron's outstanding loan of bookID and puts the copy
// back on the shelf. A repeated return reports the missing loan and changes
// nothing.
func (lm *LibraryManager) ReturnBook(ctx context.Context, patronID string, bookID int64) (Outcome, error) {
	if !ValidatePatronID(patronID) {
		return fail(FailureValidation, msgInvalidPatron), nil
	}

	var out Outcome
	err := lm.store.Atomic(ctx, func(tx Store) error {
		book, err := tx.GetBookByID(ctx, bookID)
		if errors.Is(err, ErrRecordNotFound) {
			out = fail(FailureNotFound, msgBookNotFound)
			return nil
		}
		if err != nil {
			return err
		}

		loans, err := tx.GetPatronBorrowedBooks(ctx, patronID)
		if err != nil {
			return err
		}
		noRecord := fail(FailureNotFound, msgNoActiveRecord)
		if findLoan(loans, bookID) == nil {
			out = noRecord
			return nil
		}

		if err := tx.UpdateBorrowRecordReturnDate(ctx, patronID, bookID, lm.now()); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				out = noRecord
				return nil
			}
			return err
		}
		if err := tx.UpdateBookAvailability(ctx, book.ID, min(book.AvailableCopies+1, book.TotalCopies)); err != nil {
			return err
		}
		out = succeed(fmt.Sprintf("Successfully returned \"%s\".", book.Title))
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("return book %d: %w", bookID, err)
	}
	return out, nil
}

func findLoan(loans []*ActiveLoan, bookID int64) *ActiveLoan {
	for _, l := range loans {
		if l.BookID == bookID {
			return l
		}
	}
	return nil
}
