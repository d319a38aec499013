//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command describes one invocation of an external program.
type Command struct {
	// Name is the program, resolved through PATH when not absolute.
	Name string
	// Args are passed verbatim.
	Args []string
	// Stdin, Stdout and Stderr are attached when non-nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external programs. Services take it as a dependency so tests can record invocations.
type Runner interface {
	// Run executes the command and waits for it. A non-zero exit is returned
	// as an error wrapping *exec.ExitError.
	Run(ctx context.Context, cmd Command) error
	// CombinedOutput executes the program and returns stdout and stderr together,
	// even when the program fails.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
	// LookPath resolves name the way Run would.
	LookPath(name string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// NewExecRunner returns the os/exec backed Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (*ExecRunner) Run(ctx context.Context, cmd Command) error {
	command := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	command.Stdin = cmd.Stdin
	command.Stdout = cmd.Stdout
	command.Stderr = cmd.Stderr

	if err := command.Run(); err != nil {
		return fmt.Errorf("run %s: %w", cmd, err)
	}

	return nil
}

// CombinedOutput implements Runner.
func (*ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("run %s: %w", Command{Name: name, Args: args}, err)
	}

	return output, nil
}

// LookPath implements Runner.
func (*ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
