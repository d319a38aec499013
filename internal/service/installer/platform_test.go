package installer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeArch maps known machine names and passes others through.
func TestNormalizeArch(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"x86_64":  "amd64",
		"aarch64": "arm64",
		"amd64":   "amd64",
		"arm64":   "arm64",
		"armv7l":  "armv7l",
		"riscv64": "riscv64",
		"":        "",
		"X86_64":  "X86_64",
	}

	for input, want := range cases {
		require.Equal(t, want, NormalizeArch(input), input)
	}
}

// TestHostArch never returns a raw uname alias.
func TestHostArch(t *testing.T) {
	t.Parallel()

	arch := HostArch()
	require.NotEmpty(t, arch)
	require.NotEqual(t, "x86_64", arch)
	require.NotEqual(t, "aarch64", arch)
}

// TestDownloadURL fills both placeholders.
func TestDownloadURL(t *testing.T) {
	t.Parallel()

	got := DownloadURL(
		"https://github.com/ollama/ollama/releases/download/{tag}/ollama-linux-{arch}.tar.zst",
		"v0.6.0-rc1",
		"arm64",
	)
	require.Equal(t, "https://github.com/ollama/ollama/releases/download/v0.6.0-rc1/ollama-linux-arm64.tar.zst", got)
}
