// Package prompt asks the user for yes/no confirmation.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/oshokin/ollama-updater/internal/logger"
)

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Prompter reads answers line by line from an input stream.
type Prompter struct {
	scanner     *bufio.Scanner
	out         io.Writer
	interactive bool
}

// NewPrompter creates a prompter over in/out. in counts as interactive only when it is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := false
	if file, ok := in.(*os.File); ok {
		interactive = IsTerminal(file)
	}

	return &Prompter{
		scanner:     bufio.NewScanner(in),
		out:         out,
		interactive: interactive,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Confirm prints question and waits for an answer. Only "y" and "yes" (any case)
// confirm; end of input counts as "no".
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if !p.interactive {
		logger.Warn(ctx, "Reading the confirmation from a non-interactive input; pass --yes to skip the prompt")
	}

	_, _ = fmt.Fprintf(p.out, "%s [y/N] ", question)

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)

		if err := p.scanner.Err(); err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}

		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// AutoConfirm answers yes without asking. Used for --yes and scripted runs.
type AutoConfirm struct{}

// Confirm implements Confirmer.
func (AutoConfirm) Confirm(ctx context.Context, question string) (bool, error) {
	logger.InfoKV(ctx, "Confirmed automatically", "question", question)

	return true, nil
}
