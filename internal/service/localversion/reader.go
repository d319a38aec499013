package localversion

import (
	"context"
	"regexp"
	"time"

	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// Installed is the detected version string or one of the sentinels below.
type Installed string

const (
	// Unknown means the binary ran but printed no recognizable version.
	Unknown Installed = "unknown"
	// NotInstalled means the binary could not be found.
	NotInstalled Installed = "not installed"
)

// versionCommandTimeout bounds the self-report command when no timeout is configured.
const versionCommandTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\S+`)

// IsKnown reports whether v holds a real version rather than a sentinel.
func (v Installed) IsKnown() bool {
	return v != "" && v != Unknown && v != NotInstalled
}

// Extract returns the first token looking like a version, or false.
func Extract(output string) (string, bool) {
	match := versionPattern.FindString(output)

	return match, match != ""
}

// Reader runs the managed binary's self-report command.
type Reader struct {
	runner  common.Runner
	binary  string
	timeout time.Duration
}

// NewReader creates a reader for binary. A non-positive timeout uses a default.
func NewReader(runner common.Runner, binary string, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = versionCommandTimeout
	}

	return &Reader{
		runner:  runner,
		binary:  binary,
		timeout: timeout,
	}
}

// Read returns the installed version. Failures map to the sentinels, never to errors.
func (r *Reader) Read(ctx context.Context) Installed {
	path, err := r.runner.LookPath(r.binary)
	if err != nil {
		logger.DebugKV(ctx, "Binary not found", "binary", r.binary, "error", err)
		return NotInstalled
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// ollama exits non-zero when the server is down but still prints the client version.
	output, err := r.runner.CombinedOutput(cmdCtx, path, "--version")
	if err != nil {
		logger.DebugKV(ctx, "Version command failed", "binary", path, "error", err)
	}

	version, ok := Extract(string(output))
	if !ok {
		return Unknown
	}

	return Installed(version)
}
