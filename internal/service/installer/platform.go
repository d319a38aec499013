package installer

import "strings"

// NormalizeArch maps uname-style machine names to release asset names.
// Unknown names pass through unchanged.
func NormalizeArch(machine string) string {
	switch machine {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return machine
	}
}

// DownloadURL fills the {tag} and {arch} placeholders of template.
func DownloadURL(template, tag, arch string) string {
	return strings.NewReplacer("{tag}", tag, "{arch}", arch).Replace(template)
}

// HostArch returns the normalized architecture of the running host.
func HostArch() string {
	return NormalizeArch(hostMachine())
}
