package installer

import (
	"context"
	"errors"
)

// Installer installs one release. Stable installs ignore tag.
type Installer interface {
	// CheckRequirements fails when a required external tool is missing.
	// It never mutates the host.
	CheckRequirements(ctx context.Context) error
	// Install performs the installation.
	Install(ctx context.Context, tag string) error
}

var (
	// ErrToolMissing is returned by CheckRequirements when an external tool cannot be found.
	ErrToolMissing = errors.New("required tool is missing")
	// errTagRequired is returned when a tag-based install gets no tag.
	errTagRequired = errors.New("release tag must be provided")
	// errUnsafePath is returned for archive entries escaping the install root.
	errUnsafePath = errors.New("archive entry escapes install root")
	// errUnsupportedEntry is returned when an existing directory blocks a file entry.
	errUnsupportedEntry = errors.New("cannot replace directory with file")
)
