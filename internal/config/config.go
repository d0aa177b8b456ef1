package config

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// picturesSubdir is the fixed folder name appended to the platform pictures
// directory when no explicit override is configured.
const picturesSubdir = "Bing Wallpapers"

// cacheSubdir is the fixed folder used under the config directory when no
// platform pictures directory can be resolved.
const cacheSubdir = "wallpaper-cache"

// Pictures controls where daily pictures come from and where they are stored.
type Pictures struct {
	// Market is a BCP 47 tag such as "en-US". Empty means market-agnostic.
	Market string `toml:"market"`
	// Directory overrides the resolved pictures directory.
	Directory string `toml:"directory"`
	// FallbackPicture overrides the permanent fallback asset shown before any
	// daily picture has been obtained.
	FallbackPicture string `toml:"fallback_picture"`
}

// Daemon contains runtime paths and IPC settings.
type Daemon struct {
	// StateDir holds the control socket, lock file, log file, and history
	// database. Defaults to $XDG_STATE_HOME/bingpaper.
	StateDir string `toml:"state_dir"`
	// HyprpaperSocket overrides the presentation daemon socket path.
	HyprpaperSocket string `toml:"hyprpaper_socket"`
	// PollRetryMinutes paces re-polls after a failed cycle.
	PollRetryMinutes int `toml:"poll_retry_minutes"`
	// DBus toggles the session-bus CurrentPicture property.
	DBus bool `toml:"dbus"`
}

// History controls the sqlite download journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains log output settings.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for bingpaper.
type Config struct {
	Pictures Pictures `toml:"pictures"`
	Daemon   Daemon   `toml:"daemon"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bingpaper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and the pictures directory resolved.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("bingpaper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// PicturesDirectory returns the resolved pictures directory. Resolution order:
// explicit override, platform pictures directory plus a fixed subfolder, the
// config directory plus a fixed subfolder.
func (c *Config) PicturesDirectory() string {
	if dir := strings.TrimSpace(c.Pictures.Directory); dir != "" {
		return dir
	}
	if pics := platformPicturesDir(); pics != "" {
		return filepath.Join(pics, picturesSubdir)
	}
	return filepath.Join(configDir(), cacheSubdir)
}

// platformPicturesDir resolves the XDG pictures directory: the environment
// override first, then user-dirs.dirs, then ~/Pictures when it exists.
func platformPicturesDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_PICTURES_DIR")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if dir := picturesDirFromUserDirs(filepath.Join(home, ".config", "user-dirs.dirs"), home); dir != "" {
		return dir
	}
	candidate := filepath.Join(home, "Pictures")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return ""
}

func picturesDirFromUserDirs(path, home string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "XDG_PICTURES_DIR=") {
			continue
		}
		value := strings.Trim(strings.TrimPrefix(line, "XDG_PICTURES_DIR="), `"`)
		value = strings.ReplaceAll(value, "$HOME", home)
		if value != "" {
			return value
		}
	}
	return ""
}

func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(".", "bingpaper")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "bingpaper")
}

// SocketPath returns the control socket location inside the state directory.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Daemon.StateDir, "bingpaperd.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Daemon.StateDir, "bingpaperd.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Daemon.StateDir, "bingpaper.log")
}

// HistoryPath returns the download journal location.
func (c *Config) HistoryPath() string {
	if p := strings.TrimSpace(c.History.Path); p != "" {
		return p
	}
	return filepath.Join(c.Daemon.StateDir, "history.db")
}

// EnsureDirectories creates the directories required for daemon operation.
// The pictures directory is created on a best-effort basis so the daemon can
// start when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Daemon.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory %q: %w", c.Daemon.StateDir, err)
	}
	_ = os.MkdirAll(c.PicturesDirectory(), 0o755)
	return nil
}

// ExpandPath resolves ~ and relative segments to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
