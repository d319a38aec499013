package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/domain/release"
	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/prompt"
	"github.com/oshokin/ollama-updater/internal/service/installer"
	"github.com/oshokin/ollama-updater/internal/service/updater"
	"github.com/oshokin/ollama-updater/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// checkOnly prints release information without installing.
	checkOnly bool
	// preRelease installs the latest pre-release instead of the stable release.
	preRelease bool
	// assumeYes skips the pre-release confirmation.
	assumeYes bool
	// plain disables markdown rendering of release notes.
	plain bool
	// logLevel is the minimal level written to stderr.
	logLevel string

	// rootCmd updates ollama while keeping the custom systemd unit file.
	rootCmd = &cobra.Command{
		Use:   "ollama-updater",
		Short: "Update ollama and keep the custom systemd unit file",
		Long: "Update ollama and keep the custom systemd unit file.\n\n" +
			"Without flags the latest stable release is installed by the upstream install script.\n" +
			"--check only prints the installed version and the latest releases.\n" +
			"--pre-release installs the latest pre-release archive after confirmation.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %s", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)
			cmd.SilenceUsage = true

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				Mode:       modeFromFlags(checkOnly, preRelease),
				AssumeYes:  assumeYes,
				Markdown:   !plain && prompt.IsTerminal(os.Stdout),
				Stdin:      os.Stdin,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the ollama-updater CLI and exits with the status matching the error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// modeFromFlags maps the mutually exclusive mode flags to a mode.
func modeFromFlags(check, pre bool) release.Mode {
	switch {
	case check:
		return release.ModeCheck
	case pre:
		return release.ModePreRelease
	default:
		return release.ModeStable
	}
}

// exitCode propagates the exit status of a failed install script; every other error,
// including a failing systemctl, is 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var scriptErr *installer.ScriptExitError
	if errors.As(err, &scriptErr) && scriptErr.Code > 0 {
		return scriptErr.Code
	}

	return 1
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().BoolVarP(&checkOnly, "check", "c", false, "print the installed version and the latest releases, install nothing")
	rootCmd.Flags().BoolVarP(&preRelease, "pre-release", "p", false, "install the latest pre-release from its archive")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "install the pre-release without asking")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "print release notes as plain text")
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.MarkFlagsMutuallyExclusive("check", "pre-release")
}
