// Package version exposes build metadata for ollama-updater.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Short, Full and UserAgent render them for CLI output, logs and HTTP requests.
package version
