package bing

import (
	"time"

	"bingpaper/internal/bingdate"
)

// uhdSuffix selects the full-resolution variant of an archive image.
const uhdSuffix = "_UHD.jpg"

// Image is one day's picture record as returned by the archive. Immutable
// once resolved.
type Image struct {
	StartDate     string `json:"startdate"`
	FullStartDate string `json:"fullstartdate"`
	EndDate       string `json:"enddate"`
	URL           string `json:"url"`
	URLBase       string `json:"urlbase"`
	Title         string `json:"title"`
}

type archiveResponse struct {
	Images []Image `json:"images"`
}

// FileName derives the deterministic local file name for the image. The same
// (startdate, title) pair always yields the same name; it doubles as the cache
// lookup key.
func (img Image) FileName() string {
	return img.StartDate + "-" + img.Title + ".jpg"
}

// ImageURL builds the full-resolution download URL from the given host.
func (img Image) ImageURL(host string) string {
	return host + img.URLBase + uhdSuffix
}

// ExpiresAt decodes the picture's validity end. The zero time plus an error
// means the archive sent an undecodable value.
func (img Image) ExpiresAt() (time.Time, error) {
	return bingdate.Parse(img.EndDate)
}
