// Package installer installs a new ollama version.
//
// Two strategies implement Installer:
//   - DelegatedScript downloads the upstream install script and pipes it
//     to a shell; its exit status is the result.
//   - DirectArchive downloads the platform archive of a tagged release,
//     decompresses the zstd stream and extracts the tar into the install
//     root, replacing existing files atomically.
package installer
