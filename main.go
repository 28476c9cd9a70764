package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"library-catalog/internal/jsonlog"
)

func main() {
	logger := jsonlog.New(os.Stderr, jsonlog.LevelInfo)
	a := newApp(logger)
	root := newRootCmd(a)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err == nil {
		return
	}
	if !errors.Is(err, errOperationFailed) {
		a.logger.PrintFatal(err, nil)
	}
	os.Exit(1)
}

// readPassword reads a secret from the terminal without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after password input
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
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
