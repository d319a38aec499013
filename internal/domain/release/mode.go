package release

// Mode selects which path an update run takes. It is set once from CLI flags.
type Mode int

const (
	// ModeStable installs the latest stable release through the upstream script.
	ModeStable Mode = iota
	// ModeCheck only reports the latest releases.
	ModeCheck
	// ModePreRelease installs the latest pre-release from its archive.
	ModePreRelease
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeStable:
		return "stable"
	case ModeCheck:
		return "check"
	case ModePreRelease:
		return "pre-release"
	default:
		return "unknown"
	}
}

// Mutates reports whether the mode installs anything.
func (m Mode) Mutates() bool {
	return m == ModeStable || m == ModePreRelease
}
