// Package updater drives one update run of the managed binary.
//
// It reports the installed version, then either prints the latest releases
// (check mode) or installs a release while preserving the custom systemd unit
// file: the unit file is backed up, the installer runs, the backup is restored
// and the service is reloaded and restarted.
package updater
