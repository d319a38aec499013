package integration

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/ollama-updater/internal/config"
	"github.com/oshokin/ollama-updater/internal/domain/release"
)

const (
	unitContents   = "[Service]\nEnvironment=\"OLLAMA_HOST=0.0.0.0\"\n"
	upstreamUnit   = "[Service]\nExecStart=/usr/local/bin/ollama serve\n"
	preReleaseTag  = "v0.6.0-rc1"
	stableTag      = "v0.5.0"
	systemctlCalls = "daemon-reload\nrestart ollama\n"
)

// host is a throwaway machine layout: a fake ollama binary, a fake systemctl,
// a custom unit file and local servers for the GitHub API, the install script and archives.
type host struct {
	dir        string
	cfg        *config.Config
	configPath string
	unitFile   string
	systemdLog string
	marker     string

	mu            sync.Mutex
	releases      []release.Release
	script        string
	archive       []byte
	archiveServed []string
}

func newHost(t *testing.T) *host {
	t.Helper()

	dir := t.TempDir()
	h := &host{
		dir:        dir,
		unitFile:   filepath.Join(dir, "etc", "ollama.service"),
		systemdLog: filepath.Join(dir, "systemctl.log"),
		marker:     filepath.Join(dir, "script-ran"),
		releases: []release.Release{
			{Tag: preReleaseTag, Notes: "notes-b", Prerelease: true},
			{Tag: stableTag, Notes: "notes-a"},
		},
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(h.unitFile), 0o755))
	require.NoError(t, os.WriteFile(h.unitFile, []byte(unitContents), 0o644))

	root := filepath.Join(dir, "usr")
	binary := filepath.Join(root, "bin", "ollama")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	writeScript(t, binary, "echo 'ollama version is 0.5.7'")

	systemctl := filepath.Join(dir, "systemctl")
	writeScript(t, systemctl, "echo \"$@\" >> '"+h.systemdLog+"'")

	h.script = "touch '" + h.marker + "'\nprintf '" + strings.ReplaceAll(upstreamUnit, "\n", "\\n") + "' > '" + h.unitFile + "'\n"

	server := httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(server.Close)

	h.cfg = &config.Config{
		Binary:              binary,
		ServiceUnit:         "ollama",
		UnitFile:            h.unitFile,
		BackupFile:          filepath.Join(dir, "ollama.service.backup"),
		InstallRoot:         root,
		BinDir:              filepath.Join(root, "bin"),
		LibDir:              filepath.Join(root, "lib", "ollama"),
		ReleasesURL:         server.URL + "/repos/ollama/ollama/releases",
		DownloadURLTemplate: server.URL + "/download/{tag}/ollama-linux-{arch}.tar.zst",
		InstallScriptURL:    server.URL + "/install.sh",
		Decompressor:        config.DecompressorBuiltin,
		Shell:               "sh",
		Systemctl:           systemctl,
		DirMode:             0o755,
		DirUID:              os.Getuid(),
		DirGID:              os.Getgid(),
	}

	h.configPath = filepath.Join(dir, "ollama-updater.yaml")
	h.saveConfig(t)

	return h
}

func (h *host) saveConfig(t *testing.T) {
	t.Helper()

	require.NoError(t, config.Save(h.configPath, h.cfg))
}

func (h *host) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case r.URL.Path == "/repos/ollama/ollama/releases":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.releases)
	case r.URL.Path == "/install.sh":
		_, _ = w.Write([]byte(h.script))
	case strings.HasPrefix(r.URL.Path, "/download/") && h.archive != nil:
		h.archiveServed = append(h.archiveServed, r.URL.Path)
		_, _ = w.Write(h.archive)
	default:
		http.NotFound(w, r)
	}
}

// update mutates what the servers return.
func (h *host) update(change func(h *host)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	change(h)
}

func (h *host) servedArchives() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.archiveServed...)
}

// systemctlLog returns every recorded systemctl invocation, one per line.
func (h *host) systemctlLog(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(h.systemdLog)
	if os.IsNotExist(err) {
		return ""
	}

	require.NoError(t, err)

	return string(data)
}

func (h *host) readUnit(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(h.unitFile)
	require.NoError(t, err)

	return string(data)
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

type entry struct {
	name     string
	body     string
	mode     int64
	linkname string
}

// tarZst packs entries into a zstd-compressed tarball.
func tarZst(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer

	encoder, err := zstd.NewWriter(&buf)
	require.NoError(t, err)

	tw := tar.NewWriter(encoder)

	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.body)), Typeflag: tar.TypeReg}

		switch {
		case e.linkname != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.linkname
			header.Size = 0
		case strings.HasSuffix(e.name, "/"):
			header.Typeflag = tar.TypeDir
			header.Size = 0
		}

		require.NoError(t, tw.WriteHeader(header))

		if header.Typeflag == tar.TypeReg {
			_, err = tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, encoder.Close())

	return buf.Bytes()
}
