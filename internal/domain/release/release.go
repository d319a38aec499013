package release

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Release is one published (or draft) upstream release.
type Release struct {
	// Tag is the git tag of the release, e.g. "v0.6.0-rc1".
	Tag string `json:"tag_name"`
	// Notes is the free-text release body.
	Notes string `json:"body"`
	// Prerelease marks release candidates and other non-stable builds.
	Prerelease bool `json:"prerelease"`
	// Draft marks unpublished releases, which are never selected.
	Draft bool `json:"draft"`
}

// Select returns the first non-draft release whose prerelease flag equals prerelease.
// The list order is trusted as-is (the GitHub API returns newest first);
// no version comparison takes part in the choice.
func Select(releases []Release, prerelease bool) (Release, bool) {
	for _, r := range releases {
		if !r.Draft && r.Prerelease == prerelease {
			return r, true
		}
	}

	return Release{}, false
}

// IsNewer reports whether tag is a higher version than installed.
// Both sides are parsed leniently ("v" prefix and pre-release suffixes allowed).
func IsNewer(installed, tag string) (bool, error) {
	current, err := semver.NewVersion(installed)
	if err != nil {
		return false, fmt.Errorf("parse installed version %q: %w", installed, err)
	}

	candidate, err := semver.NewVersion(tag)
	if err != nil {
		return false, fmt.Errorf("parse release tag %q: %w", tag, err)
	}

	return candidate.GreaterThan(current), nil
}
