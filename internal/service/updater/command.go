package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/domain/release"
	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/prompt"
	"github.com/oshokin/ollama-updater/internal/report"
	"github.com/oshokin/ollama-updater/internal/repository/unitfile"
	"github.com/oshokin/ollama-updater/internal/service/common"
	"github.com/oshokin/ollama-updater/internal/service/installer"
	"github.com/oshokin/ollama-updater/internal/service/localversion"
	"github.com/oshokin/ollama-updater/internal/service/releases"
	"github.com/oshokin/ollama-updater/internal/service/systemd"
	"github.com/oshokin/ollama-updater/internal/version"
)

var (
	errNoPreRelease  = errors.New("no pre-release found")
	errUnknownMode   = errors.New("unknown mode")
	errOptionsNotSet = errors.New("options are not set")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Mode selects check, stable or pre-release behaviour.
	Mode release.Mode
	// AssumeYes skips the pre-release confirmation.
	AssumeYes bool
	// Markdown renders release notes for a terminal.
	Markdown bool
	// Stdin is read for the confirmation. Defaults to os.Stdin.
	Stdin io.Reader
	// Stdout receives the report and installer output. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives installer diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

type (
	versionReader interface {
		Read(ctx context.Context) localversion.Installed
	}

	releaseFetcher interface {
		Fetch(ctx context.Context) ([]release.Release, error)
	}

	serviceController interface {
		Restart(ctx context.Context) error
	}
)

// runner holds the collaborators of a single update run.
// It is unexported: call Run(ctx, Options) from callers.
type runner struct {
	mode       release.Mode
	actor      *common.Actor
	versions   versionReader
	fetcher    releaseFetcher
	stable     installer.Installer
	prerelease installer.Installer
	preserver  unitfile.Preserver
	service    serviceController
	confirmer  prompt.Confirmer
	report     *report.Writer
}

// Run executes one update run and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ollama-updater")

	if opts == nil {
		return errOptionsNotSet
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	r := newRunner(ctx, cfg, opts)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update run failed", "mode", r.mode.String(), "error", err)
		return err
	}

	logger.InfoKV(ctx, "Update run completed", "mode", r.mode.String())

	return nil
}

// newRunner wires the production collaborators from cfg.
func newRunner(ctx context.Context, cfg *config.Config, opts *Options) *runner {
	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	commands := common.NewExecRunner()
	client := common.NewClient(
		common.WithCallTimeout(cfg.Timeout),
		common.WithUserAgent(version.UserAgent()),
	)

	var confirmer prompt.Confirmer = prompt.NewPrompter(stdin, stderr)
	if opts.AssumeYes {
		confirmer = prompt.AutoConfirm{}
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Could not detect the acting user", "error", err)
	}

	return &runner{
		mode:       opts.Mode,
		actor:      actor,
		versions:   localversion.NewReader(commands, cfg.Binary, cfg.Timeout),
		fetcher:    releases.NewFetcher(client, cfg.ReleasesURL),
		stable:     installer.NewDelegatedScript(client, commands, cfg.Shell, cfg.InstallScriptURL, stdout, stderr),
		prerelease: installer.NewDirectArchive(cfg, client, commands),
		preserver:  unitfile.NewFilePreserver(cfg.UnitFile, cfg.BackupFile),
		service:    systemd.NewController(commands, cfg.Systemctl, cfg.ServiceUnit, filepath.Base(cfg.Binary), stderr),
		confirmer:  confirmer,
		report:     report.NewWriter(stdout, opts.Markdown),
	}
}

// Run reports the installed version and dispatches on the mode.
func (r *runner) Run(ctx context.Context) error {
	r.logActor(ctx)

	installed := r.versions.Read(ctx)
	logger.InfoKV(ctx, "Detected installed version", "version", string(installed))

	switch r.mode {
	case release.ModeCheck:
		return r.check(ctx, installed)
	case release.ModePreRelease:
		return r.installPreRelease(ctx, installed)
	case release.ModeStable:
		if err := r.report.WriteInstalled(installed); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return r.install(ctx, r.stable, "")
	default:
		return fmt.Errorf("%w: %d", errUnknownMode, r.mode)
	}
}

func (r *runner) logActor(ctx context.Context) {
	if r.actor == nil {
		return
	}

	logger.InfoKV(ctx, "Running update",
		"mode", r.mode.String(), "host", r.actor.Hostname, "user", r.actor.Username)

	if r.mode.Mutates() && !r.actor.IsPrivileged() {
		logger.Warn(ctx, "Not running as root: writing the unit file and restarting the service will likely fail")
	}
}

// check prints the installed version and the latest stable and pre-release. It never mutates the host.
func (r *runner) check(ctx context.Context, installed localversion.Installed) error {
	list, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	summary := report.Summary{Installed: installed}

	if stable, found := release.Select(list, false); found {
		summary.Stable = &stable
	}

	if pre, found := release.Select(list, true); found {
		summary.PreRelease = &pre
	}

	logger.DebugKV(ctx, "Release summary", "summary", summary.String())

	if summary.Stable == nil {
		logger.Warn(ctx, "Release list has no stable release")
	}

	if err = r.report.WriteCheck(summary); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// installPreRelease shows the latest pre-release and installs it once confirmed.
// A declined confirmation ends the run successfully without touching the host.
func (r *runner) installPreRelease(ctx context.Context, installed localversion.Installed) error {
	list, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	pre, found := release.Select(list, true)
	if !found {
		return errNoPreRelease
	}

	if err = r.report.WriteInstalled(installed); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err = r.report.WriteRelease("Latest pre-release: ", installed, pre); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	confirmed, err := r.confirmer.Confirm(ctx, fmt.Sprintf("Install pre-release %s?", pre.Tag))
	if err != nil {
		return err
	}

	if !confirmed {
		logger.InfoKV(ctx, "Installation cancelled", "tag", pre.Tag)
		return nil
	}

	return r.install(ctx, r.prerelease, pre.Tag)
}

// install brackets inst with the unit file backup and restore. Nothing is mutated
// before the requirements check and the backup both succeed; after that, restore
// and restart always run and every failure is returned.
func (r *runner) install(ctx context.Context, inst installer.Installer, tag string) error {
	if err := inst.CheckRequirements(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Backing up the unit file")

	if err := r.preserver.Backup(ctx); err != nil {
		return fmt.Errorf("back up unit file: %w", err)
	}

	logger.InfoKV(ctx, "Installing", "tag", tag)

	var result error

	if err := inst.Install(ctx, tag); err != nil {
		logger.ErrorKV(ctx, "Install failed, restoring the unit file anyway", "error", err)
		result = multierr.Append(result, fmt.Errorf("install: %w", err))
	}

	logger.Info(ctx, "Restoring the unit file")

	if err := r.preserver.Restore(ctx); err != nil {
		result = multierr.Append(result, fmt.Errorf("restore unit file: %w", err))
	}

	logger.Info(ctx, "Reloading and restarting the service")

	if err := r.service.Restart(ctx); err != nil {
		result = multierr.Append(result, fmt.Errorf("restart service: %w", err))
	}

	return result
}
