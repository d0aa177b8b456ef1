package bing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"bingpaper/internal/logging"
)

const (
	defaultArchiveURL = "https://www.bing.com/HPImageArchive.aspx"
	defaultHost       = "https://www.bing.com"
	userAgent         = "bingpaper/0.1"
)

// Client talks to the image archive. Zero retries, one round trip per call.
type Client struct {
	http       *http.Client
	archiveURL string
	host       string
	market     string
	logger     *slog.Logger
}

// New builds an archive client. Market may be empty for a market-agnostic
// request.
func New(market string, logger *slog.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: 60 * time.Second},
		archiveURL: defaultArchiveURL,
		host:       defaultHost,
		market:     strings.TrimSpace(market),
		logger:     logging.NewComponentLogger(logger, "bing"),
	}
}

// ImageOfTheDay fetches the single current picture record.
func (c *Client) ImageOfTheDay(ctx context.Context) (Image, error) {
	query := url.Values{}
	query.Set("format", "js")
	query.Set("idx", "0")
	query.Set("n", "1")
	if c.market != "" {
		query.Set("mkt", c.market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.archiveURL+"?"+query.Encode(), nil)
	if err != nil {
		return Image{}, &TransportError{Op: "build archive request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Image{}, &TransportError{Op: "query image archive", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, &TransportError{Op: "query image archive", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var envelope archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Image{}, &TransportError{Op: "decode archive response", Err: err}
	}
	if len(envelope.Images) == 0 {
		return Image{}, ErrNoImagesFound
	}

	img := envelope.Images[0]
	c.logger.Debug("resolved image of the day",
		logging.String("startdate", img.StartDate),
		logging.String("title", img.Title))
	return img, nil
}

// Download streams the full-resolution image to dest. The body is written to a
// temporary name and renamed into place on success so a file at dest always
// represents a complete download. Parent directories are created as needed.
func (c *Client) Download(ctx context.Context, img Image, dest string) error {
	target := img.ImageURL(c.host)
	c.logger.Debug("downloading image", logging.String("url", target), logging.String("dest", dest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &TransportError{Op: "build download request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "download image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "download image", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Path: dest, Err: err}
	}
	if err := checkFreeSpace(dir, resp.ContentLength); err != nil {
		return &IOError{Path: dest, Err: err}
	}

	tmp := dest + ".part"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &IOError{Path: tmp, Err: err}
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return &TransportError{Op: "stream image body", Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return &IOError{Path: tmp, Err: err}
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return &IOError{Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return &IOError{Path: dest, Err: err}
	}
	return nil
}

// checkFreeSpace refuses a download that obviously cannot fit. Unknown content
// lengths pass; UHD assets are multi-megabyte, so a known length is worth the
// statfs call.
func checkFreeSpace(dir string, contentLength int64) error {
	if contentLength <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// Preflight only; the write itself will surface real failures.
		return nil
	}
	free := int64(stat.Bavail) * stat.Bsize
	if free < contentLength {
		return fmt.Errorf("insufficient disk space: need %d bytes, %d available", contentLength, free)
	}
	return nil
}
