package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/service"
	"golang.org/x/term"
)

const minPhraseLength = 8

// hash-phrase prints a bcrypt hash of the educator access phrase for use
// as TEACHER_ACCESS_HASH.
func main() {
	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	fmt.Println("=== Hash Educator Access Phrase ===")

	phrase, err := readPhrase("Enter Access Phrase: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading phrase: %v\n", err)
		os.Exit(1)
	}
	if len(phrase) < minPhraseLength {
		fmt.Fprintf(os.Stderr, "Error: phrase must be at least %d characters\n", minPhraseLength)
		os.Exit(1)
	}

	if term.IsTerminal(int(syscall.Stdin)) {
		confirm, err := readPhrase("Confirm Access Phrase: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading phrase: %v\n", err)
			os.Exit(1)
		}
		if confirm != phrase {
			fmt.Fprintln(os.Stderr, "Error: phrases do not match")
			os.Exit(1)
		}
	}

	hash, err := authService.HashPhrase(phrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing phrase: %v\n", err)
		os.Exit(1)
	}

	if cfg.TeacherAccessHash != "" && authService.CheckAccessPhrase(phrase) != nil {
		fmt.Fprintln(os.Stderr, "Note: this phrase does not match the TEACHER_ACCESS_HASH currently configured")
	}

	fmt.Printf("\nTEACHER_ACCESS_HASH=%s\n", hash)
}

// readPhrase reads without echo from a terminal, or one line from a pipe.
func readPhrase(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Print(prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Println() // Newline after phrase input
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
