// Package unitfile preserves the systemd unit file across an install.
//
// Backup copies the canonical unit file byte for byte to a sidecar path and
// Restore copies it back. Both writes go through a temporary file in the
// destination directory followed by a rename.
package unitfile
