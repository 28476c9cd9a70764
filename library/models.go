package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book represents a catalog entry and its current availability.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// BorrowRecord is one loan of a book to a patron. A nil ReturnDate means the
// loan is still outstanding.
type BorrowRecord struct {
	ID         int64      `json:"id"`
	PatronID   string     `json:"patron_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// ActiveLoan is an outstanding borrow record joined with the book it refers to.
type ActiveLoan struct {
	BorrowRecord
	Title  string `json:"title"`
	Author string `json:"author"`
}

// FeeStatus describes the outcome of a late fee calculation.
type FeeStatus string

const (
	FeeInvalidPatron  FeeStatus = "Invalid patron ID"
	FeeNoActiveRecord FeeStatus = "No active borrow record"
	FeeOnTime         FeeStatus = "On time"
	FeeOverdue        FeeStatus = "Overdue"
)

// FeeResult is the computed late fee for a single loan. It is never stored.
type FeeResult struct {
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	DaysOverdue int             `json:"days_overdue"`
	Status      FeeStatus       `json:"status"`
}

// PatronStatus is the derived view of a patron's outstanding loans. For an
// invalid patron ID only Status is set and the summary is nil.
type PatronStatus struct {
	Status string `json:"status"`
	*PatronSummary
}

// PatronSummary holds the aggregate fields of a patron status report.
type PatronSummary struct {
	PatronID           string          `json:"patron_id"`
	TotalBooksBorrowed int             `json:"total_books_borrowed"`
	TotalLateFees      decimal.Decimal `json:"total_late_fees"`
	BorrowedBooks      []BorrowedBook  `json:"borrowed_books"`
}

// BorrowedBook is one line of a patron status report.
type BorrowedBook struct {
	BookID     int64           `json:"book_id"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	BorrowDate string          `json:"borrow_date"`
	DueDate    string          `json:"due_date"`
	IsOverdue  bool            `json:"is_overdue"`
	LateFee    decimal.Decimal `json:"late_fee"`
}

// FailureKind classifies why an operation did not succeed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureNotFound
	FailureRule
	FailureCalculation
	FailureDeclined
	FailureGateway
)

func (k FailureKind) String() string {
	switch k {
	case FailureValidation:
		return "validation"
	case FailureNotFound:
		return "not_found"
	case FailureRule:
		return "rule"
	case FailureCalculation:
		return "calculation"
	case FailureDeclined:
		return "declined"
	case FailureGateway:
		return "gateway"
	default:
		return ""
	}
}

// Outcome is the result of a catalog, circulation, or refund operation.
type Outcome struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Kind    FailureKind `json:"-"`
}

// PaymentOutcome is the result of paying late fees. TransactionID is empty
// unless the gateway accepted the payment.
type PaymentOutcome struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Kind          FailureKind `json:"-"`
}

func succeed(msg string) Outcome { return Outcome{Success: true, Message: msg} }

func fail(kind FailureKind, msg string) Outcome {
	return Outcome{Message: msg, Kind: kind}
}
