// Package config defines the host-specific paths, URLs and tools used by the
// updater and provides helpers to load, validate and save them in YAML format.
//
// Every fixed location the update touches (unit file, sidecar backup,
// install root, library directory) lives in Config so tests can point the
// whole run at temporary directories.
package config
