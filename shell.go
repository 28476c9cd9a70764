package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"library-catalog/library"
	"library-catalog/payment"
)

// session carries what the interactive handlers share.
type session struct {
	ctx context.Context
	out io.Writer
	app *app
	mgr *library.LibraryManager
}

func runShell(ctx context.Context, in io.Reader, out io.Writer, a *app, mgr *library.LibraryManager) error {
	sc := bufio.NewScanner(in)
	s := &session{ctx: ctx, out: out, app: a, mgr: mgr}

	fmt.Fprintln(out, "Welcome to the Library Catalog!")
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		if !sc.Scan() {
			break
		}
		cmd := strings.TrimSpace(sc.Text())

		var err error
		switch cmd {
		case "":
			continue
		case "add book":
			err = handleAddBook(sc, s)
		case "list books":
			err = handleListBooks(s)
		case "search book":
			err = handleSearchBooks(sc, s)
		case "borrow":
			err = handleBorrow(sc, s)
		case "return":
			err = handleReturn(sc, s)
		case "late fee":
			err = handleLateFee(sc, s)
		case "patron status":
			err = handlePatronStatus(sc, s)
		case "pay fees":
			err = handlePayFees(sc, s)
		case "refund":
			err = handleRefund(sc, s)
		case "verify payment":
			handleVerifyPayment(sc, s)
		case "seed":
			err = s.app.seed(s.ctx, s.out, s.mgr, nil)
		case "help":
			printHelp(out)
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' to see the available commands.")
		}
		// Business failures were already printed; storage faults end the session.
		if err != nil && !errors.Is(err, errOperationFailed) {
			return err
		}
	}
	return sc.Err()
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Available commands:")
	fmt.Fprintln(w, "  Catalog: add book, list books, search book, seed")
	fmt.Fprintln(w, "  Circulation: borrow, return")
	fmt.Fprintln(w, "  Fees: late fee, patron status, pay fees, refund, verify payment")
	fmt.Fprintln(w, "  System: help, exit")
}

// prompt asks for one line of input. It reports false at end of input.
func prompt(sc *bufio.Scanner, s *session, label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptLoan(sc *bufio.Scanner, s *session) (string, string, bool) {
	patron, ok := prompt(sc, s, "Patron ID: ")
	if !ok {
		return "", "", false
	}
	book, ok := prompt(sc, s, "Book ID: ")
	if !ok {
		return "", "", false
	}
	return patron, book, true
}

func handleListBooks(s *session) error {
	books, err := s.mgr.GetAllBooks(s.ctx)
	if err != nil {
		return err
	}
	return s.app.printBooks(s.out, books, "No books in library.")
}

func handleAddBook(sc *bufio.Scanner, s *session) error {
	title, ok := prompt(sc, s, "Title: ")
	if !ok {
		return nil
	}
	author, ok := prompt(sc, s, "Author: ")
	if !ok {
		return nil
	}
	isbn, ok := prompt(sc, s, "ISBN (13 digits): ")
	if !ok {
		return nil
	}
	copies, ok := prompt(sc, s, "Total copies: ")
	if !ok {
		return nil
	}
	return s.app.addBook(s.ctx, s.out, s.mgr, []string{title, author, isbn, copies})
}

func handleSearchBooks(sc *bufio.Scanner, s *session) error {
	field, ok := prompt(sc, s, "Search by (title/author/isbn): ")
	if !ok {
		return nil
	}
	term, ok := prompt(sc, s, "Query: ")
	if !ok {
		return nil
	}
	books, err := s.mgr.SearchBooks(s.ctx, term, strings.ToLower(field))
	if err != nil {
		return err
	}
	if len(books) > 0 {
		fmt.Fprintf(s.out, "Found %d book(s) matching '%s':\n", len(books), term)
	}
	return s.app.printBooks(s.out, books, fmt.Sprintf("No books found matching '%s'.", term))
}

func handleBorrow(sc *bufio.Scanner, s *session) error {
	patron, book, ok := promptLoan(sc, s)
	if !ok {
		return nil
	}
	return s.app.borrow(s.ctx, s.out, s.mgr, []string{patron, book})
}

func handleReturn(sc *bufio.Scanner, s *session) error {
	patron, book, ok := promptLoan(sc, s)
	if !ok {
		return nil
	}
	return s.app.giveBack(s.ctx, s.out, s.mgr, []string{patron, book})
}

func handleLateFee(sc *bufio.Scanner, s *session) error {
	patron, book, ok := promptLoan(sc, s)
	if !ok {
		return nil
	}
	return s.app.fee(s.ctx, s.out, s.mgr, []string{patron, book})
}

func handlePatronStatus(sc *bufio.Scanner, s *session) error {
	patron, ok := prompt(sc, s, "Patron ID: ")
	if !ok {
		return nil
	}
	return s.app.status(s.ctx, s.out, s.mgr, []string{patron})
}

func handlePayFees(sc *bufio.Scanner, s *session) error {
	patron, book, ok := promptLoan(sc, s)
	if !ok {
		return nil
	}
	return s.app.pay(s.ctx, s.out, s.mgr, []string{patron, book})
}

func handleRefund(sc *bufio.Scanner, s *session) error {
	txn, ok := prompt(sc, s, "Transaction ID: ")
	if !ok {
		return nil
	}
	amount, ok := prompt(sc, s, "Refund amount: ")
	if !ok {
		return nil
	}
	return s.app.refund(s.ctx, s.out, s.mgr, []string{txn, amount})
}

func handleVerifyPayment(sc *bufio.Scanner, s *session) {
	sim, isSim := s.app.gateway().(*payment.SimulatedGateway)
	if !isSim {
		fmt.Fprintln(s.out, "Payment verification is only available with the simulated gateway.")
		return
	}
	txn, ok := prompt(sc, s, "Transaction ID: ")
	if !ok {
		return
	}
	st := sim.VerifyPaymentStatus(txn)
	if s.app.asJSON {
		writeJSON(s.out, st)
		return
	}
	if st.Status == payment.StatusNotFound {
		fmt.Fprintln(s.out, st.Message)
		return
	}
	fmt.Fprintf(s.out, "Transaction %s: %s ($%s at %s)\n",
		st.TransactionID, st.Status, st.Amount.StringFixed(2), st.Timestamp.Format("2006-01-02 15:04:05"))
}
