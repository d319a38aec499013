//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies who runs the updater on which host.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the effective system user.
	Username string
	// UID is the effective user id.
	UID int
}

// IsPrivileged reports whether the actor runs as root.
func (a *Actor) IsPrivileged() bool {
	return a != nil && a.UID == 0
}

// DetectActor gathers host and user information for the run log.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
		UID:      os.Geteuid(),
	}, nil
}
