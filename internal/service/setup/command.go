package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// errConfigExists indicates the settings file is already there and Force is not set.
var errConfigExists = errors.New("configuration file already exists, use --force to overwrite it")

// Options contains inputs for the setup entry point.
type Options struct {
	// ConfigPath is where the settings are written (defaults to config.DefaultConfigFilename).
	ConfigPath string
	// Force overwrites an existing settings file.
	Force bool
	// Decompressor overrides the default archive decompressor when set.
	Decompressor string
	// Stdout receives the next steps. Defaults to os.Stdout.
	Stdout io.Writer
}

// check is one host prerequisite and its state.
type check struct {
	name string
	ok   bool
	hint string
}

// setup persists settings and inspects the host.
// It is unexported: callers should use Run.
type setup struct {
	cfg    *config.Config
	path   string
	runner common.Runner
	out    io.Writer
}

// Run writes the settings file and prints the host checklist.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ollama-updater-init")

	s, err := newSetup(opts, common.NewExecRunner())
	if err != nil {
		return err
	}

	return s.Run(ctx, opts.Force)
}

func newSetup(opts *Options, runner common.Runner) (*setup, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	cfg := config.Default()
	if opts.Decompressor != "" {
		cfg.Decompressor = opts.Decompressor
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	return &setup{
		cfg:    cfg,
		path:   path,
		runner: runner,
		out:    out,
	}, nil
}

// Run saves the settings and reports the prerequisites.
func (s *setup) Run(ctx context.Context, force bool) error {
	if _, err := os.Stat(s.path); err == nil && !force {
		return fmt.Errorf("%s: %w", s.path, errConfigExists)
	}

	logger.InfoKV(ctx, "Saving settings", "path", s.path)

	if err := config.Save(s.path, s.cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	checks := s.inspect()
	for _, c := range checks {
		if !c.ok {
			logger.WarnKV(ctx, "Prerequisite missing", "name", c.name)
		}
	}

	if _, err := io.WriteString(s.out, s.nextSteps(checks)); err != nil {
		return err
	}

	return nil
}

// inspect checks the tools and files an update run needs.
func (s *setup) inspect() []check {
	tools := []check{
		s.lookup(s.cfg.Shell, "needed to run the install script"),
		s.lookup(s.cfg.Systemctl, "needed to restart the service"),
	}

	if s.cfg.Decompressor == config.DecompressorZstd {
		tools = append(tools, s.lookup(s.cfg.Zstd,
			"needed for pre-release installs: apt install zstd, or set decompressor: builtin"))
	}

	_, err := os.Stat(s.cfg.UnitFile)
	tools = append(tools, check{
		name: s.cfg.UnitFile,
		ok:   err == nil,
		hint: "the custom unit file to preserve; every install fails without it",
	})

	return tools
}

func (s *setup) lookup(name, hint string) check {
	_, err := s.runner.LookPath(name)

	return check{name: name, ok: err == nil, hint: hint}
}

// nextSteps renders the checklist and what to run next.
func (s *setup) nextSteps(checks []check) string {
	var builder strings.Builder

	builder.WriteString("Settings written to ")
	builder.WriteString(s.path)
	builder.WriteString("\n\nPrerequisites:\n")

	for _, c := range checks {
		state := "ok"
		if !c.ok {
			state = "missing"
		}

		fmt.Fprintf(&builder, "  [%s] %s: %s\n", state, c.name, c.hint)
	}

	builder.WriteString("\nThe unit file backup is kept at ")
	builder.WriteString(s.cfg.BackupFile)
	builder.WriteString("\nRun \"ollama-updater --check\" to see the latest releases.\n")

	return builder.String()
}
