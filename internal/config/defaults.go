package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// Default returns the baseline configuration before any file is applied.
func Default() Config {
	return Config{
		Pictures: Pictures{
			Market: "",
		},
		Daemon: Daemon{
			PollRetryMinutes: 60,
			DBus:             true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:     "console",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func defaultStateDir() string {
	if base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); base != "" {
		return filepath.Join(base, "bingpaper")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bingpaper-state")
	}
	return filepath.Join(home, ".local", "state", "bingpaper")
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Daemon.StateDir) == "" {
		c.Daemon.StateDir = defaultStateDir()
	}

	for name, field := range map[string]*string{
		"daemon.state_dir":          &c.Daemon.StateDir,
		"pictures.directory":        &c.Pictures.Directory,
		"pictures.fallback_picture": &c.Pictures.FallbackPicture,
		"history.path":              &c.History.Path,
		"daemon.hyprpaper_socket":   &c.Daemon.HyprpaperSocket,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = strings.TrimSpace(*field)
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return fmt.Errorf("expand %s: %w", name, err)
		}
		*field = expanded
	}
	return nil
}

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	if market := strings.TrimSpace(c.Pictures.Market); market != "" {
		if _, err := language.Parse(market); err != nil {
			return fmt.Errorf("pictures.market: invalid tag %q: %w", market, err)
		}
	}
	if c.Daemon.PollRetryMinutes < 0 {
		return fmt.Errorf("daemon.poll_retry_minutes: must not be negative, got %d", c.Daemon.PollRetryMinutes)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
