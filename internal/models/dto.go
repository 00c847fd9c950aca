package models

import "time"

// RefreshRequestDTO is the body of a refresh request.
type RefreshRequestDTO struct {
	PlaylistURL string `json:"playlistUrl" binding:"required,max=500"`
	Detailed    bool   `json:"detailed"`
}

// RefreshResponseDTO reports the outcome of a refresh.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RefreshResponseDTO struct {
	PlaylistID    string    `json:"playlistId"`
	VideoCount    int       `json:"videoCount"`
	Changed       bool      `json:"changed"`
	Version       int       `json:"version,omitempty"`
	VideosAdded   int       `json:"videosAdded"`
	VideosRemoved int       `json:"videosRemoved"`
	StatusChanges int       `json:"statusChanges"`
	RefreshedAt   time.Time `json:"refreshedAt"`
}

// ErrorResponse is the standard error body returned by the API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}
