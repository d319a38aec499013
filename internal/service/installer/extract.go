package installer

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"go.uber.org/multierr"

	"github.com/oshokin/ollama-updater/internal/logger"
)

// parentDirMode is used for directories the archive implies but does not list.
const parentDirMode os.FileMode = 0o755

// extract unpacks a tar stream under root and returns the number of entries written.
func extract(ctx context.Context, r io.Reader, root string) (int, error) {
	// Entries are checked against the resolved root so a symlinked root still matches itself.
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return 0, fmt.Errorf("resolve install root: %w", err)
	}

	reader := tar.NewReader(r)
	entries := 0

	for {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}

		if err != nil {
			return entries, fmt.Errorf("read archive: %w", err)
		}

		target, err := securePath(root, header.Name)
		if err != nil {
			return entries, err
		}

		if err = resolvedWithin(realRoot, filepath.Dir(target)); err != nil {
			return entries, fmt.Errorf("%q: %w", header.Name, err)
		}

		mode := header.FileInfo().Mode().Perm()

		switch header.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, mode|0o700)
		case tar.TypeReg:
			err = writeFile(ctx, target, reader, mode)
		case tar.TypeSymlink:
			err = writeSymlink(root, realRoot, target, header.Linkname)
		case tar.TypeLink:
			err = writeHardLink(root, realRoot, target, header.Linkname)
		default:
			logger.DebugKV(ctx, "Skipping archive entry", "name", header.Name, "type", string(header.Typeflag))
			continue
		}

		if err != nil {
			return entries, fmt.Errorf("%s: %w", header.Name, err)
		}

		entries++
	}
}

// securePath joins name to root and rejects results outside root.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, name)
	if !within(root, target) {
		return "", fmt.Errorf("%q: %w", name, errUnsafePath)
	}

	return target, nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolvedWithin follows the symlinks already on disk along path and fails when
// the deepest existing part of it lies outside realRoot. Parts that do not exist
// yet are created later by MkdirAll, which refuses to walk through dangling links.
func resolvedWithin(realRoot, path string) error {
	existing := filepath.Clean(path)

	for {
		resolved, err := filepath.EvalSymlinks(existing)

		switch {
		case err == nil:
			if !within(realRoot, resolved) {
				return fmt.Errorf("%s resolves to %s: %w", existing, resolved, errUnsafePath)
			}

			return nil
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			return nil
		}

		existing = parent
	}
}

// writeFile streams a new file to disk. An existing file is swapped atomically
// with go-update instead, so a running binary is never rewritten in place.
func writeFile(ctx context.Context, target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), parentDirMode); err != nil {
		return err
	}

	info, err := os.Lstat(target)

	switch {
	case err == nil && info.IsDir():
		return errUnsupportedEntry
	case err == nil && info.Mode().IsRegular():
		logger.DebugKV(ctx, "Replacing existing file", "path", target)

		return goupdate.Apply(r, goupdate.Options{
			TargetPath: target,
			TargetMode: mode,
		})
	case err == nil:
		// Symlinks and other special files are replaced outright.
		if err = os.Remove(target); err != nil {
			return err
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(file, r); err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}

// writeSymlink creates target pointing to linkname, which must resolve inside root.
// The text of linkname is checked first; once created, the link is resolved on
// disk, since links written earlier may turn a harmless looking ".." into an escape.
func writeSymlink(root, realRoot, target, linkname string) error {
	if filepath.IsAbs(linkname) || !within(root, filepath.Join(filepath.Dir(target), linkname)) {
		return fmt.Errorf("symlink to %q: %w", linkname, errUnsafePath)
	}

	if err := replaceable(target); err != nil {
		return err
	}

	if err := os.Symlink(linkname, target); err != nil {
		return err
	}

	resolved, err := filepath.EvalSymlinks(target)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return multierr.Append(err, os.Remove(target))
	case !within(realRoot, resolved):
		return multierr.Append(
			fmt.Errorf("symlink to %q resolves to %s: %w", linkname, resolved, errUnsafePath),
			os.Remove(target))
	}

	return nil
}

// writeHardLink links target to another archive entry.
func writeHardLink(root, realRoot, target, linkname string) error {
	source, err := securePath(root, linkname)
	if err != nil {
		return err
	}

	if err = resolvedWithin(realRoot, filepath.Dir(source)); err != nil {
		return err
	}

	if err = replaceable(target); err != nil {
		return err
	}

	return os.Link(source, target)
}

// replaceable creates the parent of target and removes whatever non-directory sits at target.
func replaceable(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), parentDirMode); err != nil {
		return err
	}

	info, err := os.Lstat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	if info.IsDir() {
		return errUnsupportedEntry
	}

	return os.Remove(target)
}
