// Package common holds helpers shared by several services.
//
// It provides a small HTTP client wrapper with timeouts and a User-Agent,
// a command runner that the installer, service controller and version
// reader execute external tools through, and a helper to detect the
// current system actor (hostname/username/uid) for logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
