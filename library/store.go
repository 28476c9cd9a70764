package library

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateRecord = errors.New("duplicate record")
)

// Store is the persistence boundary used by LibraryManager. Lookups that find
// nothing return ErrRecordNotFound; uniqueness violations return
// ErrDuplicateRecord.
type Store interface {
	GetBookByID(ctx context.Context, id int64) (*Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)
	GetAllBooks(ctx context.Context) ([]*Book, error)
	InsertBook(ctx context.Context, title, author, isbn string, totalCopies int) (int64, error)
	UpdateBookAvailability(ctx context.Context, id int64, availableCopies int) error

	InsertBorrowRecord(ctx context.Context, patronID string, bookID int64, borrowDate, dueDate time.Time) (int64, error)
	UpdateBorrowRecordReturnDate(ctx context.Context, patronID string, bookID int64, returnDate time.Time) error
	GetPatronBorrowCount(ctx context.Context, patronID string) (int, error)
	GetPatronBorrowedBooks(ctx context.Context, patronID string) ([]*ActiveLoan, error)

	// Atomic runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Atomic(ctx context.Context, fn func(Store) error) error
}
