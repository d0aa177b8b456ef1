// Package config loads, normalizes, and validates the bingpaper configuration
// file. All path fields are expanded to absolute form at load time, and the
// pictures directory resolves through a deterministic fallback chain so every
// component sees one settled location.
package config
