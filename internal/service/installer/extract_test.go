package installer

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// tarball builds an uncompressed tar stream.
func tarball(t *testing.T, entries []entry) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer

	writer := tar.NewWriter(&buf)

	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: e.mode, Typeflag: e.typeflag, Linkname: e.linkname}
		if e.typeflag == tar.TypeReg {
			header.Size = int64(len(e.body))
		}

		require.NoError(t, writer.WriteHeader(header))

		if e.typeflag == tar.TypeReg {
			_, err := writer.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, writer.Close())

	return bytes.NewReader(buf.Bytes())
}

// TestWithin accepts root and descendants only.
func TestWithin(t *testing.T) {
	t.Parallel()

	require.True(t, within("/usr/local", "/usr/local"))
	require.True(t, within("/usr/local", "/usr/local/bin/ollama"))
	require.True(t, within("/usr/local", "/usr/local/..lib"))
	require.False(t, within("/usr/local", "/usr"))
	require.False(t, within("/usr/local", "/usr/localbin"))
	require.False(t, within("/usr/local", "/etc/passwd"))
}

// TestSecurePath joins names and rejects parent escapes.
func TestSecurePath(t *testing.T) {
	t.Parallel()

	got, err := securePath("/usr/local", "./bin/ollama")
	require.NoError(t, err)
	require.Equal(t, "/usr/local/bin/ollama", got)

	got, err = securePath("/usr/local", "/bin/ollama")
	require.NoError(t, err)
	require.Equal(t, "/usr/local/bin/ollama", got)

	_, err = securePath("/usr/local", "bin/../../etc/passwd")
	require.ErrorIs(t, err, errUnsafePath)
}

// TestExtract_RejectsEscapingSymlink refuses links pointing outside the root.
func TestExtract_RejectsEscapingSymlink(t *testing.T) {
	t.Parallel()

	for _, linkname := range []string{"/etc/shadow", "../../../etc/shadow"} {
		root := t.TempDir()

		_, err := extract(context.Background(), tarball(t, []entry{
			{name: "lib/ollama/evil", linkname: linkname, typeflag: tar.TypeSymlink},
		}), root)
		require.ErrorIs(t, err, errUnsafePath, linkname)

		_, err = os.Lstat(filepath.Join(root, "lib", "ollama", "evil"))
		require.ErrorIs(t, err, os.ErrNotExist)
	}
}

// TestExtract_RejectsSymlinkChainEscape refuses a link that only escapes through an earlier link.
func TestExtract_RejectsSymlinkChainEscape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	parent := filepath.Dir(root)

	_, err := extract(context.Background(), tarball(t, []entry{
		{name: "s1", linkname: ".", typeflag: tar.TypeSymlink},
		{name: "s2", linkname: "s1/..", typeflag: tar.TypeSymlink},
		{name: "s2/escaped.txt", body: "pwned", typeflag: tar.TypeReg, mode: 0o644},
	}), root)
	require.ErrorIs(t, err, errUnsafePath)

	_, err = os.Lstat(filepath.Join(parent, "escaped.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Lstat(filepath.Join(root, "s2"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtract_RejectsWriteThroughOutsideLink refuses files under an existing directory link leaving the root.
func TestExtract_RejectsWriteThroughOutsideLink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "lib")))

	_, err := extract(context.Background(), tarball(t, []entry{
		{name: "lib/libggml.so", body: "ggml", typeflag: tar.TypeReg, mode: 0o644},
	}), root)
	require.ErrorIs(t, err, errUnsafePath)

	_, err = os.Lstat(filepath.Join(outside, "libggml.so"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtract_SymlinkedRoot accepts a root that is itself reached through a link.
func TestExtract_SymlinkedRoot(t *testing.T) {
	t.Parallel()

	actual := t.TempDir()
	root := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.Symlink(actual, root))

	entries, err := extract(context.Background(), tarball(t, []entry{
		{name: "lib/ollama/libggml.so.1", body: "ggml", typeflag: tar.TypeReg, mode: 0o644},
		{name: "lib/ollama/libggml.so", linkname: "libggml.so.1", typeflag: tar.TypeSymlink},
	}), root)
	require.NoError(t, err)
	require.Equal(t, 2, entries)
	require.Equal(t, "ggml", readFile(t, filepath.Join(actual, "lib", "ollama", "libggml.so")))
}

// TestExtract_ReplacesSymlinkWithFile swaps a stale link for a regular file.
func TestExtract_ReplacesSymlinkWithFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "bin", "ollama")

	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.Symlink("/opt/ollama/bin/ollama", target))

	entries, err := extract(context.Background(), tarball(t, []entry{
		{name: "bin/ollama", body: "binary", typeflag: tar.TypeReg, mode: 0o755},
	}), root)
	require.NoError(t, err)
	require.Equal(t, 1, entries)

	info, err := os.Lstat(target)
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())
	require.Equal(t, "binary", readFile(t, target))
}

// TestExtract_DirectoryBlocksFile reports a directory sitting where a file should go.
func TestExtract_DirectoryBlocksFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin", "ollama"), 0o755))

	_, err := extract(context.Background(), tarball(t, []entry{
		{name: "bin/ollama", body: "binary", typeflag: tar.TypeReg, mode: 0o755},
	}), root)
	require.ErrorIs(t, err, errUnsupportedEntry)
}

// TestExtract_CanceledContext stops before reading further entries.
func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extract(ctx, tarball(t, []entry{
		{name: "bin/ollama", body: "binary", typeflag: tar.TypeReg, mode: 0o755},
	}), t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}
