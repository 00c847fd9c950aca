// Package handler exposes the tracker over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/fetch"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/internal/service"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// PlaylistHandler serves the playlist tracking API.
type PlaylistHandler struct {
	service *service.TrackerService
}

// NewPlaylistHandler creates a handler backed by the tracker service.
func NewPlaylistHandler(svc *service.TrackerService) *PlaylistHandler {
	return &PlaylistHandler{service: svc}
}

// RegisterRoutes attaches the API routes to the router group.
func (h *PlaylistHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/playlists", h.ListPlaylists)
	rg.GET("/playlists/:id", h.GetPlaylist)
	rg.GET("/playlists/:id/videos", h.ListVideos)
	rg.GET("/playlists/:id/history", h.GetHistory)
	rg.POST("/playlists/refresh", h.RefreshPlaylist)
	rg.DELETE("/playlists/:id", h.DeletePlaylist)
}

// ListPlaylists returns summaries of every tracked playlist.
func (h *PlaylistHandler) ListPlaylists(c *gin.Context) {
	summaries, err := h.service.ListPlaylists(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if summaries == nil {
		summaries = []*models.PlaylistSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

// GetPlaylist returns the full stored state of one playlist.
func (h *PlaylistHandler) GetPlaylist(c *gin.Context) {
	record, err := h.service.GetPlaylist(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListVideos returns a playlist's videos, optionally filtered by ?status=
// and ?downloaded=.
func (h *PlaylistHandler) ListVideos(c *gin.Context) {
	var filter service.VideoFilter
	if raw := c.Query("status"); raw != "" {
		status := models.VideoStatus(raw)
		switch status {
		case models.StatusLive, models.StatusPrivate, models.StatusDeleted, models.StatusUnavailable:
			filter.Status = &status
		default:
			h.respondError(c, service.NewValidationError("status", "unknown status "+raw))
			return
		}
	}
	if raw := c.Query("downloaded"); raw != "" {
		downloaded, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, service.NewValidationError("downloaded", "must be true or false"))
			return
		}
		filter.Downloaded = &downloaded
	}

	videos, err := h.service.ListVideos(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if videos == nil {
		videos = []*models.VideoRecord{}
	}
	c.JSON(http.StatusOK, videos)
}

// GetHistory returns the playlist's version ledger.
func (h *PlaylistHandler) GetHistory(c *gin.Context) {
	// The ledger alone cannot distinguish "never tracked" from "tracked but
	// never changed", so check the state first.
	if _, err := h.service.GetPlaylist(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	entries, err := h.service.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.VersionEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// RefreshPlaylist triggers a fetch-and-reconcile pass for the requested
// playlist URL.
func (h *PlaylistHandler) RefreshPlaylist(c *gin.Context) {
	var req models.RefreshRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, service.NewValidationError("body", err.Error()))
		return
	}

	depth := fetch.DepthFast
	if req.Detailed {
		depth = fetch.DepthDetailed
	}

	result, err := h.service.RefreshPlaylist(c.Request.Context(), req.PlaylistURL, depth)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := models.RefreshResponseDTO{
		PlaylistID:  result.PlaylistID,
		VideoCount:  result.VideoCount,
		Changed:     result.Changed,
		RefreshedAt: time.Now().UTC(),
	}
	if result.Version != nil {
		resp.Version = result.Version.Version
		resp.VideosAdded = len(result.Version.VideosAdded)
		resp.VideosRemoved = len(result.Version.VideosRemoved)
		resp.StatusChanges = len(result.Version.StatusChanges)
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePlaylist removes a playlist's state and ledger.
func (h *PlaylistHandler) DeletePlaylist(c *gin.Context) {
	if err := h.service.DeletePlaylist(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps service and store errors to HTTP statuses with the
// standard error body.
func (h *PlaylistHandler) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(c, http.StatusBadRequest, "Bad Request", verr.Error())
	case store.IsNotFound(err):
		h.writeError(c, http.StatusNotFound, "Not Found", err.Error())
	case store.IsCorrupt(err):
		logger.Log.Error("corrupt playlist record", zap.Error(err))
		h.writeError(c, http.StatusInternalServerError, "Internal Server Error", "stored playlist record is unreadable")
	default:
		logger.Log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		h.writeError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func (h *PlaylistHandler) writeError(c *gin.Context, status int, errName, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     errName,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}
