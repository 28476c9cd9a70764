package library

import (
	"context"
	"fmt"
)

// SamplePatronID holds the sample loan created by Seed.
const SamplePatronID = "123456"

var sampleBooks = []struct {
	title, author, isbn string
	copies              int
}{
	{"The Great Gatsby", "F. Scott Fitzgerald", "9780743273565", 3},
	{"To Kill a Mockingbird", "Harper Lee", "9780061120084", 2},
	{"1984", "George Orwell", "9780451524935", 1},
}

// Seed loads the sample catalog into an empty library and lends the only copy
// of "1984" to SamplePatronID. It reports false when the catalog already had
// books and nothing was added.
func (lm *LibraryManager) Seed(ctx context.Context) (bool, error) {
	books, err := lm.store.GetAllBooks(ctx)
	if err != nil {
		return false, err
	}
	if len(books) > 0 {
		return false, nil
	}

	for _, s := range sampleBooks {
		out, err := lm.AddBook(ctx, s.title, s.author, s.isbn, s.copies)
		if err != nil {
			return false, err
		}
		if !out.Success {
			return false, fmt.Errorf("seed %q: %s", s.title, out.Message)
		}
	}

	orwell, err := lm.store.GetBookByISBN(ctx, "9780451524935")
	if err != nil {
		return false, err
	}
	out, err := lm.BorrowBook(ctx, SamplePatronID, orwell.ID)
	if err != nil {
		return false, err
	}
	if !out.Success {
		return false, fmt.Errorf("seed loan: %s", out.Message)
	}
	return true, nil
}
