package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// DelegatedScript runs the upstream install script. What the script does is opaque;
// only its exit status matters.
type DelegatedScript struct {
	client *common.Client
	runner common.Runner
	shell  string
	url    string
	stdout io.Writer
	stderr io.Writer
}

// NewDelegatedScript creates an installer fetching the script from url and piping it to shell.
func NewDelegatedScript(client *common.Client, runner common.Runner, shell, url string, stdout, stderr io.Writer) *DelegatedScript {
	return &DelegatedScript{
		client: client,
		runner: runner,
		shell:  shell,
		url:    url,
		stdout: stdout,
		stderr: stderr,
	}
}

// CheckRequirements verifies the shell is available.
func (s *DelegatedScript) CheckRequirements(_ context.Context) error {
	if _, err := s.runner.LookPath(s.shell); err != nil {
		return fmt.Errorf("%s is needed to run the install script: %w", s.shell, ErrToolMissing)
	}

	return nil
}

// Install downloads the whole script before starting the shell, so a dropped
// connection never executes a truncated script. The tag is ignored.
func (s *DelegatedScript) Install(ctx context.Context, _ string) error {
	logger.InfoKV(ctx, "Downloading install script", "url", s.url)

	body, err := s.client.Open(ctx, s.url)
	if err != nil {
		return fmt.Errorf("download install script: %w", err)
	}

	script, err := io.ReadAll(body)
	_ = body.Close()

	if err != nil {
		return fmt.Errorf("download install script: %w", err)
	}

	logger.InfoKV(ctx, "Running install script", "shell", s.shell, "bytes", len(script))

	err = s.runner.Run(ctx, common.Command{
		Name:   s.shell,
		Args:   []string{"-s"},
		Stdin:  bytes.NewReader(script),
		Stdout: s.stdout,
		Stderr: s.stderr,
	})
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ScriptExitError{Code: exitErr.ExitCode(), Err: err}
	}

	if err != nil {
		return fmt.Errorf("install script: %w", err)
	}

	return nil
}

// ScriptExitError reports an install script that ran and exited with a non-zero status.
type ScriptExitError struct {
	// Code is the script's exit status.
	Code int
	// Err is the underlying command error.
	Err error
}

// Error implements error.
func (e *ScriptExitError) Error() string {
	return fmt.Sprintf("install script exited with status %d: %v", e.Code, e.Err)
}

// Unwrap returns the command error.
func (e *ScriptExitError) Unwrap() error {
	return e.Err
}
