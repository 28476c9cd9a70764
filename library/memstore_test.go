package library

import (
	"context"
	"errors"
	"time"
)

// memStore is an in-memory Store for tests. It is not safe for concurrent use.
type memStore struct {
	books   []*Book
	records []*BorrowRecord
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) GetBookByID(_ context.Context, id int64) (*Book, error) {
	for _, b := range s.books {
		if b.ID == id {
			c := *b
			return &c, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memStore) GetBookByISBN(_ context.Context, isbn string) (*Book, error) {
	for _, b := range s.books {
		if b.ISBN == isbn {
			c := *b
			return &c, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memStore) GetAllBooks(context.Context) ([]*Book, error) {
	books := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		c := *b
		books = append(books, &c)
	}
	return books, nil
}

func (s *memStore) InsertBook(_ context.Context, title, author, isbn string, totalCopies int) (int64, error) {
	for _, b := range s.books {
		if b.ISBN == isbn {
			return 0, ErrDuplicateRecord
		}
	}
	id := int64(len(s.books) + 1)
	s.books = append(s.books, &Book{
		ID: id, Title: title, Author: author, ISBN: isbn,
		TotalCopies: totalCopies, AvailableCopies: totalCopies,
	})
	return id, nil
}

func (s *memStore) UpdateBookAvailability(_ context.Context, id int64, availableCopies int) error {
	for _, b := range s.books {
		if b.ID == id {
			if availableCopies < 0 || availableCopies > b.TotalCopies {
				return errors.New("check constraint failed")
			}
			b.AvailableCopies = availableCopies
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *memStore) InsertBorrowRecord(_ context.Context, patronID string, bookID int64, borrowDate, dueDate time.Time) (int64, error) {
	if s.active(patronID, bookID) != nil {
		return 0, ErrDuplicateRecord
	}
	id := int64(len(s.records) + 1)
	s.records = append(s.records, &BorrowRecord{
		ID: id, PatronID: patronID, BookID: bookID,
		BorrowDate: borrowDate, DueDate: dueDate,
	})
	return id, nil
}

func (s *memStore) UpdateBorrowRecordReturnDate(_ context.Context, patronID string, bookID int64, returnDate time.Time) error {
	r := s.active(patronID, bookID)
	if r == nil {
		return ErrRecordNotFound
	}
	r.ReturnDate = &returnDate
	return nil
}

func (s *memStore) GetPatronBorrowCount(_ context.Context, patronID string) (int, error) {
	n := 0
	for _, r := range s.records {
		if r.PatronID == patronID && r.ReturnDate == nil {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetPatronBorrowedBooks(ctx context.Context, patronID string) ([]*ActiveLoan, error) {
	loans := []*ActiveLoan{}
	for _, r := range s.records {
		if r.PatronID != patronID || r.ReturnDate != nil {
			continue
		}
		b, err := s.GetBookByID(ctx, r.BookID)
		if err != nil {
			return nil, err
		}
		loans = append(loans, &ActiveLoan{BorrowRecord: *r, Title: b.Title, Author: b.Author})
	}
	return loans, nil
}

// Atomic restores a snapshot of both tables when fn fails.
func (s *memStore) Atomic(_ context.Context, fn func(Store) error) error {
	books := make([]*Book, len(s.books))
	for i, b := range s.books {
		c := *b
		books[i] = &c
	}
	records := make([]*BorrowRecord, len(s.records))
	for i, r := range s.records {
		c := *r
		records[i] = &c
	}
	if err := fn(s); err != nil {
		s.books, s.records = books, records
		return err
	}
	return nil
}

func (s *memStore) active(patronID string, bookID int64) *BorrowRecord {
	for _, r := range s.records {
		if r.PatronID == patronID && r.BookID == bookID && r.ReturnDate == nil {
			return r
		}
	}
	return nil
}

// faultStore fails the named method with err and delegates everything else.
type faultStore struct {
	Store
	failOn string
	err    error
}

func (f *faultStore) GetBookByID(ctx context.Context, id int64) (*Book, error) {
	if f.failOn == "GetBookByID" {
		return nil, f.err
	}
	return f.Store.GetBookByID(ctx, id)
}

func (f *faultStore) GetPatronBorrowedBooks(ctx context.Context, patronID string) ([]*ActiveLoan, error) {
	if f.failOn == "GetPatronBorrowedBooks" {
		return nil, f.err
	}
	return f.Store.GetPatronBorrowedBooks(ctx, patronID)
}

func (f *faultStore) UpdateBookAvailability(ctx context.Context, id int64, availableCopies int) error {
	if f.failOn == "UpdateBookAvailability" {
		return f.err
	}
	return f.Store.UpdateBookAvailability(ctx, id, availableCopies)
}

func (f *faultStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return f.Store.Atomic(ctx, func(tx Store) error {
		return fn(&faultStore{Store: tx, failOn: f.failOn, err: f.err})
	})
}
