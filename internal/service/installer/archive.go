package installer

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// DirectArchive installs a tagged release from its platform archive.
type DirectArchive struct {
	cfg          *config.Config
	client       *common.Client
	decompressor Decompressor
	arch         string
}

// NewDirectArchive creates an archive installer for the host architecture,
// using the decompressor named in cfg.
func NewDirectArchive(cfg *config.Config, client *common.Client, runner common.Runner) *DirectArchive {
	var decompressor Decompressor = NewExternalZstd(runner, cfg.Zstd)
	if cfg.Decompressor == config.DecompressorBuiltin {
		decompressor = BuiltinZstd{}
	}

	return &DirectArchive{
		cfg:          cfg,
		client:       client,
		decompressor: decompressor,
		arch:         HostArch(),
	}
}

// WithArch overrides the detected architecture.
func (a *DirectArchive) WithArch(arch string) *DirectArchive {
	a.arch = NormalizeArch(arch)
	return a
}

// CheckRequirements implements Installer.
func (a *DirectArchive) CheckRequirements(_ context.Context) error {
	return a.decompressor.CheckRequirements()
}

// Install implements Installer.
func (a *DirectArchive) Install(ctx context.Context, tag string) error {
	if tag == "" {
		return errTagRequired
	}

	// Repeated for callers that install without checking first; the check never mutates.
	if err := a.CheckRequirements(ctx); err != nil {
		return err
	}

	url := DownloadURL(a.cfg.DownloadURLTemplate, tag, a.arch)
	ctx = logger.WithKV(ctx, "tag", tag)

	if err := a.prepareDirectories(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading release archive", "url", url, "root", a.cfg.InstallRoot)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := a.client.Open(streamCtx, url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	defer func() {
		_ = body.Close()
	}()

	stream, err := a.decompressor.Decompress(streamCtx, body)
	if err != nil {
		return err
	}

	entries, err := extract(streamCtx, stream, a.cfg.InstallRoot)
	if err != nil {
		// Stop the download and the decoder before waiting on them.
		cancel()

		return multierr.Append(fmt.Errorf("extract %s: %w", url, err), stream.Close())
	}

	if err = stream.Close(); err != nil {
		return fmt.Errorf("decompress %s: %w", url, err)
	}

	logger.InfoKV(ctx, "Release archive extracted", "entries", entries)

	return nil
}

// prepareDirectories removes the old library directory and recreates the
// binary and library directories with the configured owner and mode.
func (a *DirectArchive) prepareDirectories(ctx context.Context) error {
	logger.InfoKV(ctx, "Removing previous libraries", "path", a.cfg.LibDir)

	if err := os.RemoveAll(a.cfg.LibDir); err != nil {
		return fmt.Errorf("remove %s: %w", a.cfg.LibDir, err)
	}

	for _, dir := range []string{a.cfg.BinDir, a.cfg.LibDir} {
		if err := os.MkdirAll(dir, a.cfg.DirMode); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}

		if err := os.Chmod(dir, a.cfg.DirMode); err != nil {
			return fmt.Errorf("chmod %s: %w", dir, err)
		}

		if err := os.Chown(dir, a.cfg.DirUID, a.cfg.DirGID); err != nil {
			return fmt.Errorf("chown %s: %w", dir, err)
		}
	}

	return nil
}
