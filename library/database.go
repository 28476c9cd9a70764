package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

// querier is the subset of *sql.DB and *sql.Tx used by the accessors.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Database is the SQLite implementation of Store.
type Database struct {
	db *sql.DB
	q  querier
	tx *sql.Tx

	insertBookStmt   *sql.Stmt
	insertBorrowStmt *sql.Stmt
}

var _ Store = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// BEGIN IMMEDIATE takes the write lock up front, so two borrows racing
	// for the last copy queue on busy_timeout instead of both reading it.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db, q: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.tx != nil {
		return errors.New("close called inside a transaction")
	}
	if d.insertBookStmt != nil {
		d.insertBookStmt.Close()
	}
	if d.insertBorrowStmt != nil {
		d.insertBorrowStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL UNIQUE,
            total_copies INTEGER NOT NULL CHECK (total_copies > 0),
            available_copies INTEGER NOT NULL,
            CHECK (available_copies >= 0 AND available_copies <= total_copies)
        );`,
		`CREATE TABLE IF NOT EXISTS borrow_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            patron_id TEXT NOT NULL,
            book_id INTEGER NOT NULL REFERENCES books(id),
            borrow_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME
        );`,
		// One outstanding loan per patron and book.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrow_records_active
            ON borrow_records(patron_id, book_id) WHERE return_date IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_patron
            ON borrow_records(patron_id, return_date);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Prepare(`INSERT INTO books(title,author,isbn,total_copies,available_copies) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertBorrowStmt, err = d.db.Prepare(`INSERT INTO borrow_records(patron_id,book_id,borrow_date,due_date) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// stmt binds a prepared statement to the current transaction, if any.
func (d *Database) stmt(ctx context.Context, s *sql.Stmt) *sql.Stmt {
	if d.tx != nil {
		return d.tx.StmtContext(ctx, s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Atomic runs fn inside one transaction. Nested calls join the outer one.
func (d *Database) Atomic(ctx context.Context, fn func(Store) error) error {
	if d.tx != nil {
		return fn(d)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	scoped := &Database{
		db:               d.db,
		q:                tx,
		tx:               tx,
		insertBookStmt:   d.insertBookStmt,
		insertBorrowStmt: d.insertBorrowStmt,
	}
	if err := fn(scoped); err != nil {
		return err
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `id,title,author,isbn,total_copies,available_copies`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.TotalCopies, &b.AvailableCopies); err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *Database) GetBookByID(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	b, err := scanBook(d.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return b, err
}

func (d *Database) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	b, err := scanBook(d.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn=?`, isbn))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return b, err
}

// GetAllBooks returns every book in insertion order.
func (d *Database) GetAllBooks(ctx context.Context) ([]*Book, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// InsertBook adds a book with every copy available.
func (d *Database) InsertBook(ctx context.Context, title, author, isbn string, totalCopies int) (int64, error) {
	res, err := d.stmt(ctx, d.insertBookStmt).ExecContext(ctx, title, author, isbn, totalCopies, totalCopies)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateRecord
		}
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) UpdateBookAvailability(ctx context.Context, id int64, availableCopies int) error {
	res, err := d.q.ExecContext(ctx, `UPDATE books SET available_copies=? WHERE id=?`, availableCopies, id)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	return expectOneRow(res)
}

// ---------------------------------------------------------------------------
// Borrow records
// ---------------------------------------------------------------------------

func (d *Database) InsertBorrowRecord(ctx context.Context, patronID string, bookID int64, borrowDate, dueDate time.Time) (int64, error) {
	res, err := d.stmt(ctx, d.insertBorrowStmt).ExecContext(ctx, patronID, bookID, borrowDate, dueDate)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateRecord
		}
		return 0, fmt.Errorf("insert borrow record: %w", err)
	}
	return res.LastInsertId()
}

// UpdateBorrowRecordReturnDate closes the outstanding loan of bookID by patronID.
func (d *Database) UpdateBorrowRecordReturnDate(ctx context.Context, patronID string, bookID int64, returnDate time.Time) error {
	res, err := d.q.ExecContext(ctx,
		`UPDATE borrow_records SET return_date=? WHERE patron_id=? AND book_id=? AND return_date IS NULL`,
		returnDate, patronID, bookID)
	if err != nil {
		return fmt.Errorf("update return date: %w", err)
	}
	return expectOneRow(res)
}

// GetPatronBorrowCount counts outstanding loans only.
func (d *Database) GetPatronBorrowCount(ctx context.Context, patronID string) (int, error) {
	var n int
	err := d.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrow_records WHERE patron_id=? AND return_date IS NULL`, patronID).Scan(&n)
	return n, err
}

// GetPatronBorrowedBooks returns outstanding loans joined with book details,
// oldest first.
func (d *Database) GetPatronBorrowedBooks(ctx context.Context, patronID string) ([]*ActiveLoan, error) {
	rows, err := d.q.QueryContext(ctx, `
        SELECT br.id, br.patron_id, br.book_id, br.borrow_date, br.due_date, b.title, b.author
        FROM borrow_records br
        JOIN books b ON b.id = br.book_id
        WHERE br.patron_id = ? AND br.return_date IS NULL
        ORDER BY br.borrow_date, br.id`, patronID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []*ActiveLoan{}
	for rows.Next() {
		var l ActiveLoan
		if err := rows.Scan(&l.ID, &l.PatronID, &l.BookID, &l.BorrowDate, &l.DueDate, &l.Title, &l.Author); err != nil {
			return nil, err
		}
		loans = append(loans, &l)
	}
	return loans, rows.Err()
}

// getBorrowRecord fetches a record by id, including returned ones.
func (d *Database) getBorrowRecord(ctx context.Context, id int64) (*BorrowRecord, error) {
	var (
		r        BorrowRecord
		returned sql.NullTime
	)
	err := d.q.QueryRowContext(ctx,
		`SELECT id,patron_id,book_id,borrow_date,due_date,return_date FROM borrow_records WHERE id=?`, id).
		Scan(&r.ID, &r.PatronID, &r.BookID, &r.BorrowDate, &r.DueDate, &returned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		r.ReturnDate = &t
	}
	return &r, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
