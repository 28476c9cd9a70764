// Command import_books loads catalog rows from a CSV file with the columns
// title,author,isbn,copies. Every row goes through the same validation as
// the add-book command.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/internal/jsonlog"
	"library-catalog/library"
)

func main() {
	logger := jsonlog.New(os.Stderr, jsonlog.LevelInfo)
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.PrintFatal(err, nil)
	}
}

func newRootCmd(logger *jsonlog.Logger) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:           "import_books FILE.csv",
		Short:         "Import books into the catalog from a CSV file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			manager, err := library.NewLibraryManager(cfg.DBPath, library.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open library: %w", err)
			}
			defer manager.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Importing books from %s...\n", args[0])
			sum, err := importBooks(cmd.Context(), manager, f, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\nImport complete!\n")
			fmt.Fprintf(w, "Successfully imported: %d books\n", sum.imported)
			fmt.Fprintf(w, "Errors: %d\n", sum.failed)
			if sum.imported > 0 {
				printCatalog(cmd.Context(), w, manager)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides LIBRARY_DB)")
	return cmd
}

type summary struct {
	imported int
	failed   int
}

// importBooks adds one book per CSV record. A first record whose title
// column reads "title" is treated as a header. Rejected rows are reported
// and counted; only read and storage errors stop the import.
func importBooks(ctx context.Context, mgr *library.LibraryManager, r io.Reader, w io.Writer) (summary, error) {
	var sum summary
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			fmt.Fprintf(w, "Line %d: ERROR - expected 4 columns, got %d\n", line, len(rec))
			sum.failed++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}

		title, author, isbn := rec[0], rec[1], strings.TrimSpace(rec[2])
		copies, _ := strconv.Atoi(strings.TrimSpace(rec[3]))

		fmt.Fprintf(w, "Importing: %s by %s... ", strings.TrimSpace(title), strings.TrimSpace(author))
		out, err := mgr.AddBook(ctx, title, author, isbn, copies)
		if err != nil {
			return sum, err
		}
		if !out.Success {
			fmt.Fprintf(w, "ERROR - %s\n", out.Message)
			sum.failed++
			continue
		}
		fmt.Fprintln(w, "SUCCESS")
		sum.imported++
	}
}

func printCatalog(ctx context.Context, w io.Writer, mgr *library.LibraryManager) {
	books, err := mgr.GetAllBooks(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error retrieving books: %v\n", err)
		return
	}
	fmt.Fprintln(w, "\nCatalog:")
	fmt.Fprintf(w, "%-4s %-45s %-28s %-13s %s\n", "ID", "Title", "Author", "ISBN", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range books {
		fmt.Fprintf(w, "%-4d %-45s %-28s %-13s %d\n", b.ID, truncateString(b.Title, 45), truncateString(b.Author, 28), b.ISBN, b.TotalCopies)
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
