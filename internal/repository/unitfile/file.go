package unitfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/ollama-updater/internal/logger"
)

// Preserver defines the backup/restore pair bracketing an install.
type Preserver interface {
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
}

// FilePreserver copies the unit file to a sidecar path and back.
type FilePreserver struct {
	// unitPath is the canonical unit file location.
	unitPath string
	// backupPath is the sidecar copy, overwritten by every run.
	backupPath string
}

var (
	// ErrUnitFileNotFound is returned by Backup when there is nothing to preserve.
	ErrUnitFileNotFound = errors.New("unit file not found")
	// ErrBackupNotFound is returned by Restore when no sidecar copy exists.
	ErrBackupNotFound = errors.New("unit file backup not found")

	// errSourceMissing marks a copy whose source does not exist, as opposed to an unwritable destination.
	errSourceMissing = errors.New("source file missing")
)

// NewFilePreserver creates a preserver for unitPath with its sidecar at backupPath.
func NewFilePreserver(unitPath, backupPath string) *FilePreserver {
	return &FilePreserver{
		unitPath:   filepath.Clean(unitPath),
		backupPath: filepath.Clean(backupPath),
	}
}

// Backup copies the unit file to the sidecar path.
func (p *FilePreserver) Backup(ctx context.Context) error {
	if err := copyFile(p.unitPath, p.backupPath); err != nil {
		if errors.Is(err, errSourceMissing) {
			return fmt.Errorf("%s: %w", p.unitPath, ErrUnitFileNotFound)
		}

		return fmt.Errorf("write backup %s (check backup_file in the settings): %w", p.backupPath, err)
	}

	logger.InfoKV(ctx, "Unit file backed up", "from", p.unitPath, "to", p.backupPath)

	return nil
}

// Restore copies the sidecar back over the unit file, whatever the installer left there.
func (p *FilePreserver) Restore(ctx context.Context) error {
	if err := copyFile(p.backupPath, p.unitPath); err != nil {
		if errors.Is(err, errSourceMissing) {
			return fmt.Errorf("%s: %w", p.backupPath, ErrBackupNotFound)
		}

		return fmt.Errorf("write unit file %s: %w", p.unitPath, err)
	}

	logger.InfoKV(ctx, "Unit file restored", "from", p.backupPath, "to", p.unitPath)

	return nil
}

// copyFile writes the contents and permissions of src to dst atomically.
// A missing src is reported with errSourceMissing before dst is touched.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", src, errSourceMissing)
	}

	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	contents, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	temporary, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	temporaryName := temporary.Name()

	// Removing after a successful rename is a no-op.
	defer func() {
		_ = os.Remove(temporaryName)
	}()

	if _, err = temporary.Write(contents); err != nil {
		_ = temporary.Close()

		return fmt.Errorf("write %s: %w", temporaryName, err)
	}

	if err = temporary.Chmod(info.Mode().Perm()); err != nil {
		_ = temporary.Close()

		return fmt.Errorf("chmod %s: %w", temporaryName, err)
	}

	if err = temporary.Close(); err != nil {
		return fmt.Errorf("close %s: %w", temporaryName, err)
	}

	if err = os.Rename(temporaryName, dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}

	return nil
}
