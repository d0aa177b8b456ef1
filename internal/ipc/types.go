package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon's runtime snapshot.
type StatusResponse struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	LockPath       string    `json:"lock_path"`
	SocketPath     string    `json:"socket_path"`
	HistoryDBPath  string    `json:"history_db_path"`
	PicturesDir    string    `json:"pictures_dir"`
	FallbackAsset  string    `json:"fallback_asset"`
	CurrentPicture string    `json:"current_picture"`
	NextPoll       time.Time `json:"next_poll"`
	LastError      string    `json:"last_error"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CurrentRequest fetches the picture currently on screen.
type CurrentRequest struct{}

// CurrentResponse carries the current picture path. Empty means no picture
// and no fallback asset.
type CurrentResponse struct {
	Path string `json:"path"`
}

// RefreshRequest forces an immediate poll cycle.
type RefreshRequest struct{}

// RefreshResponse acknowledges a refresh request.
type RefreshResponse struct {
	Accepted bool `json:"accepted"`
}

// HistoryRequest lists journaled pictures. Limit <= 0 means all.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one journaled picture.
type HistoryEntry struct {
	StartDate    string    `json:"start_date"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Market       string    `json:"market"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}
