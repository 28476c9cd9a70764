package library

import (
	"io"
	"time"

	"library-catalog/internal/jsonlog"
)

// Loan policy.
const (
	LoanPeriodDays  = 14
	MaxActiveLoans  = 5
	dateLayout      = "2006-01-02"
	maxTitleLength  = 200
	maxAuthorLength = 100
)

// LibraryManager applies the catalog, circulation, fee, and payment rules on
// top of a Store.
type LibraryManager struct {
	store  Store
	closer io.Closer
	now    func() time.Time
	logger *jsonlog.Logger
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithClock overrides the time source used for borrow, return, and fee dates.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithLogger sets the logger for gateway and storage events.
func WithLogger(l *jsonlog.Logger) Option {
	return func(lm *LibraryManager) { lm.logger = l }
}

// NewManager wraps an existing store. The caller owns the store's lifecycle.
func NewManager(store Store, opts ...Option) *LibraryManager {
	lm := &LibraryManager{
		store:  store,
		now:    time.Now,
		logger: jsonlog.New(io.Discard, jsonlog.LevelOff),
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm := NewManager(db, opts...)
	lm.closer = db
	return lm, nil
}

// Close closes the underlying database if the manager opened it.
func (lm *LibraryManager) Close() error {
	if lm.closer == nil {
		return nil
	}
	return lm.closer.Close()
}
