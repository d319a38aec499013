package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every host-specific location and collaborator used by an update run.
type Config struct {
	// Binary is the managed executable, looked up on PATH unless absolute.
	Binary string `yaml:"binary"`
	// ServiceUnit is the systemd unit restarted after an install.
	ServiceUnit string `yaml:"service_unit"`
	// UnitFile is the canonical unit file preserved across installs.
	UnitFile string `yaml:"unit_file"`
	// BackupFile is the sidecar copy of UnitFile. Defaults to a file next to the updater executable.
	BackupFile string `yaml:"backup_file"`
	// InstallRoot is where pre-release archives are extracted.
	InstallRoot string `yaml:"install_root"`
	// BinDir is recreated with DirMode before extraction.
	BinDir string `yaml:"bin_dir"`
	// LibDir is removed and recreated before extraction.
	LibDir string `yaml:"lib_dir"`
	// ReleasesURL is the GitHub releases list endpoint.
	ReleasesURL string `yaml:"releases_url"`
	// DownloadURLTemplate builds the pre-release asset URL from {tag} and {arch}.
	DownloadURLTemplate string `yaml:"download_url_template"`
	// InstallScriptURL is the upstream install script used for stable installs.
	InstallScriptURL string `yaml:"install_script_url"`
	// Decompressor selects how .tar.zst archives are decoded: "zstd" or "builtin".
	Decompressor string `yaml:"decompressor"`
	// Zstd is the zstd executable used by the "zstd" decompressor.
	Zstd string `yaml:"zstd"`
	// Shell runs the install script.
	Shell string `yaml:"shell"`
	// Systemctl is the service manager executable.
	Systemctl string `yaml:"systemctl"`
	// DirMode is applied to BinDir and LibDir.
	DirMode os.FileMode `yaml:"dir_mode"`
	// DirUID owns BinDir and LibDir.
	DirUID int `yaml:"dir_uid"`
	// DirGID owns BinDir and LibDir.
	DirGID int `yaml:"dir_gid"`
	// Timeout bounds the release metadata request and the version command.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default location of the updater settings.
	DefaultConfigFilename = "/etc/ollama-updater.yaml"

	// DefaultBackupFilename is the sidecar name placed next to the updater executable.
	DefaultBackupFilename = "ollama.service.backup"

	// DefaultTimeout is the default duration for metadata requests and version probes.
	DefaultTimeout = 30 * time.Second

	// DefaultDirMode is applied to the directories recreated before extraction.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DecompressorZstd pipes archives through the external zstd tool.
	DecompressorZstd = "zstd"

	// DecompressorBuiltin decodes archives in-process.
	DecompressorBuiltin = "builtin"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory field is empty.
	errFieldRequired = errors.New("field must be provided")
	// errPathNotAbsolute is returned for relative filesystem locations.
	errPathNotAbsolute = errors.New("path must be absolute")
	// errBadTemplate is returned when the download template lacks a placeholder.
	errBadTemplate = errors.New("download url template must contain {tag} and {arch}")
	// errUnknownDecompressor is returned for unsupported decompressor names.
	errUnknownDecompressor = errors.New("unknown decompressor")
	// errUnsafeLibDir is returned when removing LibDir would wipe the install root or the filesystem root.
	errUnsafeLibDir = errors.New("lib_dir must be a dedicated directory")
)

// Default returns the settings matching a stock ollama install on Linux.
func Default() *Config {
	return &Config{
		Binary:              "ollama",
		ServiceUnit:         "ollama",
		UnitFile:            "/etc/systemd/system/ollama.service",
		InstallRoot:         "/usr/local",
		BinDir:              "/usr/local/bin",
		LibDir:              "/usr/local/lib/ollama",
		ReleasesURL:         "https://api.github.com/repos/ollama/ollama/releases",
		DownloadURLTemplate: "https://github.com/ollama/ollama/releases/download/{tag}/ollama-linux-{arch}.tar.zst",
		InstallScriptURL:    "https://ollama.com/install.sh",
		Decompressor:        DecompressorZstd,
		Zstd:                "zstd",
		Shell:               "sh",
		Systemctl:           "systemctl",
		DirMode:             DefaultDirMode,
		DirUID:              0,
		DirGID:              0,
		Timeout:             DefaultTimeout,
	}
}

// Load reads configuration from the provided path on top of Default and validates it.
// A missing file at DefaultConfigFilename is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename:
		// Nothing to merge.
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for optional ones.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := map[string]string{
		"binary":       cfg.Binary,
		"service_unit": cfg.ServiceUnit,
		"shell":        cfg.Shell,
		"systemctl":    cfg.Systemctl,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", name, errFieldRequired)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.DirMode == 0 {
		cfg.DirMode = DefaultDirMode
	}

	if cfg.Decompressor == "" {
		cfg.Decompressor = DecompressorZstd
	}

	if cfg.Zstd == "" {
		cfg.Zstd = "zstd"
	}

	if cfg.Decompressor != DecompressorZstd && cfg.Decompressor != DecompressorBuiltin {
		return fmt.Errorf("%q: %w", cfg.Decompressor, errUnknownDecompressor)
	}

	if cfg.BackupFile == "" {
		backupFile, err := defaultBackupFile()
		if err != nil {
			return err
		}

		cfg.BackupFile = backupFile
	}

	paths := map[string]string{
		"unit_file":    cfg.UnitFile,
		"backup_file":  cfg.BackupFile,
		"install_root": cfg.InstallRoot,
		"bin_dir":      cfg.BinDir,
		"lib_dir":      cfg.LibDir,
	}
	for name, value := range paths {
		if !filepath.IsAbs(value) {
			return fmt.Errorf("%s %q: %w", name, value, errPathNotAbsolute)
		}
	}

	libDir := filepath.Clean(cfg.LibDir)
	if libDir == string(filepath.Separator) || libDir == filepath.Clean(cfg.InstallRoot) {
		return fmt.Errorf("%s: %w", cfg.LibDir, errUnsafeLibDir)
	}

	urls := map[string]string{
		"releases_url":       cfg.ReleasesURL,
		"install_script_url": cfg.InstallScriptURL,
	}
	for name, value := range urls {
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if !strings.Contains(cfg.DownloadURLTemplate, "{tag}") || !strings.Contains(cfg.DownloadURLTemplate, "{arch}") {
		return errBadTemplate
	}

	return nil
}

// defaultBackupFile places the sidecar backup next to the running updater.
func defaultBackupFile() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate updater executable: %w", err)
	}

	return filepath.Join(filepath.Dir(executable), DefaultBackupFilename), nil
}
