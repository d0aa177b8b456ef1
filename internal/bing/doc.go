// Package bing resolves the image-of-the-day metadata from the Bing HP image
// archive and downloads the full-resolution asset. The client performs exactly
// one network round trip per call and never retries; retry policy belongs to
// the scheduler.
package bing
