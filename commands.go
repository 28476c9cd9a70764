package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"library-catalog/config"
	"library-catalog/internal/jsonlog"
	"library-catalog/library"
	"library-catalog/payment"
)

// errOperationFailed marks a command whose result was already printed but
// did not succeed. main exits non-zero without logging it again.
var errOperationFailed = errors.New("operation failed")

type app struct {
	dbPath string
	asJSON bool

	cfg    config.Config
	logger *jsonlog.Logger
	mgr    *library.LibraryManager
	gw     library.PaymentGateway

	readSecret func(prompt string) (string, error)
}

func newApp(logger *jsonlog.Logger) *app {
	return &app{logger: logger, readSecret: readPassword}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Manage a library catalog, loans, and late fees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides LIBRARY_DB)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	search := &cobra.Command{
		Use:   "search TERM",
		Short: "Search the catalog by title, author, or ISBN",
		Args:  cobra.ExactArgs(1),
	}
	by := search.Flags().String("by", library.SearchByTitle, "field to search: title, author, or isbn")
	search.RunE = a.run(func(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
		books, err := mgr.SearchBooks(ctx, args[0], *by)
		if err != nil {
			return err
		}
		return a.printBooks(w, books, fmt.Sprintf("No books found matching '%s'.", args[0]))
	})

	root.AddCommand(
		&cobra.Command{
			Use:   "add-book TITLE AUTHOR ISBN COPIES",
			Short: "Add a book to the catalog",
			Args:  cobra.ExactArgs(4),
			RunE:  a.run(a.addBook),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every book in the catalog",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, w io.Writer, mgr *library.LibraryManager, _ []string) error {
				books, err := mgr.GetAllBooks(ctx)
				if err != nil {
					return err
				}
				return a.printBooks(w, books, "No books in library.")
			}),
		},
		search,
		&cobra.Command{
			Use:   "borrow PATRON_ID BOOK_ID",
			Short: "Lend a book to a patron",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.borrow),
		},
		&cobra.Command{
			Use:   "return PATRON_ID BOOK_ID",
			Short: "Record a returned book",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.giveBack),
		},
		&cobra.Command{
			Use:   "fee PATRON_ID BOOK_ID",
			Short: "Show the late fee owed on a loan",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.fee),
		},
		&cobra.Command{
			Use:   "status PATRON_ID",
			Short: "Show a patron's loans and late fees",
			Args:  cobra.ExactArgs(1),
			RunE:  a.run(a.status),
		},
		&cobra.Command{
			Use:   "pay PATRON_ID BOOK_ID",
			Short: "Pay the late fee owed on a loan",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.pay),
		},
		&cobra.Command{
			Use:   "refund TRANSACTION_ID AMOUNT",
			Short: "Refund a late fee payment",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.refund),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load sample books into an empty catalog",
			Args:  cobra.NoArgs,
			RunE:  a.run(a.seed),
		},
		&cobra.Command{
			Use:   "hash-passphrase",
			Short: "Print a bcrypt hash for LIBRARIAN_PASSPHRASE_HASH",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.hashPassphrase(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Start an interactive session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := a.manager()
				if err != nil {
					return err
				}
				return runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a, mgr)
			},
		},
	)
	return root
}

func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		a.logger.PrintError(err, map[string]string{"stage": "config"})
		return errOperationFailed
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	level, err := jsonlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = *cfg
	a.logger = jsonlog.New(cmd.ErrOrStderr(), level)
	return nil
}

func (a *app) manager() (*library.LibraryManager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	mgr, err := library.NewLibraryManager(a.cfg.DBPath, library.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", a.cfg.DBPath, err)
	}
	a.mgr = mgr
	return mgr, nil
}

// gateway builds the configured payment gateway once per process so a shell
// session keeps one simulated ledger.
func (a *app) gateway() library.PaymentGateway {
	if a.gw != nil {
		return a.gw
	}
	switch a.cfg.Gateway {
	case config.GatewayMidtrans:
		a.gw = payment.NewMidtransGateway(a.cfg.MidtransServerKey, a.cfg.MidtransProduction)
	default:
		a.gw = payment.NewSimulatedGateway(nil)
	}
	return a.gw
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func (a *app) run(fn func(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		mgr, err := a.manager()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), cmd.OutOrStdout(), mgr, args)
	}
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

func (a *app) addBook(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	// A non-numeric count is reported by AddBook in its usual order.
	copies, err := strconv.Atoi(strings.TrimSpace(args[3]))
	if err != nil {
		copies = 0
	}
	out, err := mgr.AddBook(ctx, args[0], args[1], strings.TrimSpace(args[2]), copies)
	if err != nil {
		return err
	}
	return a.printOutcome(w, out)
}

func (a *app) borrow(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	bookID, ok := parseBookID(args[1])
	if !ok {
		return a.printOutcome(w, invalidBookID)
	}
	out, err := mgr.BorrowBook(ctx, args[0], bookID)
	if err != nil {
		return err
	}
	return a.printOutcome(w, out)
}

func (a *app) giveBack(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	bookID, ok := parseBookID(args[1])
	if !ok {
		return a.printOutcome(w, invalidBookID)
	}
	out, err := mgr.ReturnBook(ctx, args[0], bookID)
	if err != nil {
		return err
	}
	return a.printOutcome(w, out)
}

func (a *app) fee(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	bookID, ok := parseBookID(args[1])
	if !ok {
		return a.printOutcome(w, invalidBookID)
	}
	fee, err := mgr.CalculateLateFee(ctx, args[0], bookID)
	if err != nil {
		return err
	}
	return a.printFee(w, fee)
}

func (a *app) status(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	st, err := mgr.PatronStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return a.printStatus(w, st)
}

func (a *app) pay(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	bookID, ok := parseBookID(args[1])
	if !ok {
		return a.printOutcome(w, invalidBookID)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.PaymentTimeout)
	defer cancel()
	out, err := mgr.PayLateFees(ctx, args[0], bookID, a.gateway())
	if err != nil {
		return err
	}
	return a.printPayment(w, out)
}

func (a *app) refund(ctx context.Context, w io.Writer, mgr *library.LibraryManager, args []string) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(args[1]))
	if err != nil {
		return a.printOutcome(w, library.Outcome{Message: "Invalid refund amount."})
	}
	if out, ok := a.authorizeRefund(); !ok {
		return a.printOutcome(w, out)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.PaymentTimeout)
	defer cancel()
	return a.printOutcome(w, mgr.RefundLateFeePayment(ctx, strings.TrimSpace(args[0]), amount, a.gateway()))
}

func (a *app) seed(ctx context.Context, w io.Writer, mgr *library.LibraryManager, _ []string) error {
	added, err := mgr.Seed(ctx)
	if err != nil {
		return err
	}
	if !added {
		return a.printOutcome(w, library.Outcome{Success: true, Message: "Catalog already has books; nothing was added."})
	}
	return a.printOutcome(w, library.Outcome{Success: true, Message: "Sample catalog loaded."})
}

// authorizeRefund asks for the librarian passphrase when a hash is configured.
func (a *app) authorizeRefund() (library.Outcome, bool) {
	if a.cfg.PassphraseHash == "" {
		return library.Outcome{}, true
	}
	secret, err := a.readSecret("Librarian passphrase: ")
	if err != nil {
		return library.Outcome{Message: fmt.Sprintf("Unable to read passphrase: %v", err)}, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.PassphraseHash), []byte(secret)); err != nil {
		a.logger.PrintInfo("refund passphrase rejected", nil)
		return library.Outcome{Message: "Invalid librarian passphrase."}, false
	}
	return library.Outcome{}, true
}

func (a *app) hashPassphrase(w io.Writer) error {
	first, err := a.readSecret("New librarian passphrase: ")
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	if first == "" {
		return a.printOutcome(w, library.Outcome{Message: "Passphrase cannot be empty."})
	}
	second, err := a.readSecret("Confirm passphrase: ")
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	if first != second {
		return a.printOutcome(w, library.Outcome{Message: "Passphrases do not match."})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(first), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(hash))
	return nil
}

var invalidBookID = library.Outcome{Message: "Invalid book ID", Kind: library.FailureValidation}

func parseBookID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func result(success bool) error {
	if success {
		return nil
	}
	return errOperationFailed
}

func (a *app) printOutcome(w io.Writer, out library.Outcome) error {
	if a.asJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, out.Message)
	}
	return result(out.Success)
}

func (a *app) printPayment(w io.Writer, out library.PaymentOutcome) error {
	if a.asJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
		return result(out.Success)
	}
	fmt.Fprintln(w, out.Message)
	if out.TransactionID != "" {
		fmt.Fprintf(w, "Transaction ID: %s\n", out.TransactionID)
	}
	return result(out.Success)
}

func (a *app) printBooks(w io.Writer, books []*library.Book, empty string) error {
	if a.asJSON {
		return writeJSON(w, books)
	}
	if len(books) == 0 {
		fmt.Fprintln(w, empty)
		return nil
	}
	fmt.Fprintf(w, "%-5s %-30s %-25s %-13s %s\n", "ID", "Title", "Author", "ISBN", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 85))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-30s %-25s %-13s %d/%d\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			b.ISBN,
			b.AvailableCopies,
			b.TotalCopies)
	}
	return nil
}

func (a *app) printFee(w io.Writer, fee library.FeeResult) error {
	ok := fee.Status == library.FeeOnTime || fee.Status == library.FeeOverdue
	if a.asJSON {
		if err := writeJSON(w, fee); err != nil {
			return err
		}
		return result(ok)
	}
	switch fee.Status {
	case library.FeeOverdue:
		fmt.Fprintf(w, "Late fee: $%s (%d days overdue)\n", fee.FeeAmount.StringFixed(2), fee.DaysOverdue)
	case library.FeeOnTime:
		fmt.Fprintln(w, "Late fee: $0.00 (on time)")
	default:
		fmt.Fprintln(w, string(fee.Status))
	}
	return result(ok)
}

func (a *app) printStatus(w io.Writer, st library.PatronStatus) error {
	if a.asJSON {
		if err := writeJSON(w, st); err != nil {
			return err
		}
		return result(st.PatronSummary != nil)
	}
	if st.PatronSummary == nil {
		fmt.Fprintln(w, st.Status)
		return errOperationFailed
	}
	fmt.Fprintf(w, "Patron %s: %s\n", st.PatronID, st.Status)
	fmt.Fprintf(w, "Books borrowed: %d\n", st.TotalBooksBorrowed)
	fmt.Fprintf(w, "Total late fees: $%s\n", st.TotalLateFees.StringFixed(2))
	if len(st.BorrowedBooks) == 0 {
		return nil
	}
	fmt.Fprintf(w, "%-5s %-30s %-11s %-11s %s\n", "ID", "Title", "Borrowed", "Due", "Late fee")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	for _, b := range st.BorrowedBooks {
		flag := ""
		if b.IsOverdue {
			flag = " OVERDUE"
		}
		fmt.Fprintf(w, "%-5d %-30s %-11s %-11s $%s%s\n",
			b.BookID, truncateString(b.Title, 30), b.BorrowDate, b.DueDate, b.LateFee.StringFixed(2), flag)
	}
	return nil
}
