package daemon

import (
	"os"
	"path/filepath"
	"strings"
)

// fallbackName is the permanent fallback asset shown before any daily picture
// has been obtained.
const fallbackName = "bliss.jpg"

// systemFallbackPath is where a packaged install places the fallback asset.
const systemFallbackPath = "/usr/share/bingpaper/" + fallbackName

// locateFallback resolves the fallback asset: an explicit override first,
// then the packaged location, then next to the executable, then the working
// directory. Returns empty when no candidate exists; the daemon runs without
// a fallback in that case.
func locateFallback(override string) string {
	if p := strings.TrimSpace(override); p != "" {
		if fileExists(p) {
			return p
		}
		return ""
	}

	if fileExists(systemFallbackPath) {
		return systemFallbackPath
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), fallbackName)
		if fileExists(candidate) {
			return candidate
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, fallbackName)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
