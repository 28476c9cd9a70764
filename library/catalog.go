package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Search fields accepted by SearchBooks.
const (
	SearchByTitle  = "title"
	SearchByAuthor = "author"
	SearchByISBN   = "isbn"
)

// AddBook validates the input and inserts a new book with every copy
// available. Checks run in a fixed order and the first failure is reported.
func (lm *LibraryManager) AddBook(ctx context.Context, title, author, isbn string, totalCopies int) (Outcome, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	switch {
	case title == "":
		return fail(FailureValidation, "Title is required."), nil
	case utf8.RuneCountInString(title) > maxTitleLength:
		return fail(FailureValidation, "Title must be less than 200 characters."), nil
	case author == "":
		return fail(FailureValidation, "Author is required."), nil
	case utf8.RuneCountInString(author) > maxAuthorLength:
		return fail(FailureValidation, "Author must be less than 100 characters."), nil
	case !ValidateISBN(isbn):
		return fail(FailureValidation, "ISBN must be exactly 13 digits."), nil
	case !ValidatePositiveInt(totalCopies):
		return fail(FailureValidation, "Total copies must be a positive integer."), nil
	}

	duplicate := fail(FailureRule, "A book with this ISBN already exists.")
	if _, err := lm.store.GetBookByISBN(ctx, isbn); err == nil {
		return duplicate, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return Outcome{}, fmt.Errorf("lookup isbn: %w", err)
	}

	if _, err := lm.store.InsertBook(ctx, title, author, isbn, totalCopies); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return duplicate, nil
		}
		return Outcome{}, err
	}
	return succeed(fmt.Sprintf("Book \"%s\" has been successfully added to the catalog.", title)), nil
}

// GetBook returns a single book or ErrRecordNotFound.
func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.store.GetBookByID(ctx, id)
}

// GetAllBooks lists the whole catalog in insertion order.
func (lm *LibraryManager) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return lm.store.GetAllBooks(ctx)
}

// SearchBooks matches title and author case-insensitively by substring and
// ISBN exactly. An unknown field or a blank term yields no results.
func (lm *LibraryManager) SearchBooks(ctx context.Context, term, field string) ([]*Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Book{}, nil
	}

	var match func(*Book) bool
	switch field {
	case SearchByTitle:
		needle := strings.ToLower(term)
		match = func(b *Book) bool { return strings.Contains(strings.ToLower(b.Title), needle) }
	case SearchByAuthor:
		needle := strings.ToLower(term)
		match = func(b *Book) bool { return strings.Contains(strings.ToLower(b.Author), needle) }
	case SearchByISBN:
		match = func(b *Book) bool { return b.ISBN == term }
	default:
		return []*Book{}, nil
	}

	books, err := lm.store.GetAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	results := []*Book{}
	for _, b := range books {
		if match(b) {
			results = append(results, b)
		}
	}
	return results, nil
}
