// Package confirmation asks the operator before a command overwrites data.
package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"bqdesc-backupper/internal/errors"
)

// Service prompts for yes/no answers
type Service struct {
	reader      *bufio.Reader
	writer      io.Writer
	interactive bool
}

// NewService creates a service reading from stdin. Prompts are only possible
// when stdin is a terminal.
func NewService() *Service {
	return NewServiceWith(os.Stdin, os.Stderr, term.IsTerminal(int(os.Stdin.Fd())))
}

// NewServiceWith creates a service over arbitrary streams
func NewServiceWith(in io.Reader, out io.Writer, interactive bool) *Service {
	return &Service{
		reader:      bufio.NewReader(in),
		writer:      out,
		interactive: interactive,
	}
}

// Confirm asks question and reports whether the operator agreed.
// autoApprove skips the prompt; without a terminal and without autoApprove
// the answer is an error so that scripts never block.
func (s *Service) Confirm(question string, autoApprove bool) (bool, error) {
	if autoApprove {
		return true, nil
	}
	if !s.interactive {
		return false, errors.NewValidationError("confirmation required: rerun with --yes when not on a terminal", nil)
	}

	for {
		fmt.Fprintf(s.writer, "%s [y/N]: ", question)

		input, err := s.reader.ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			return false, fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		default:
			fmt.Fprintf(s.writer, "Invalid input '%s'. Please enter 'y' for yes or 'n' for no.\n", strings.TrimSpace(input))
			if err == io.EOF {
				return false, nil
			}
		}
	}
}
