package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/arhamfareed106/Social-Network-Platform/internal/presence"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

// PresenceHandlers exposes the presence tracker over HTTP.
type PresenceHandlers struct {
	tracker *presence.Tracker
	log     *zerolog.Logger
}

// NewPresenceHandlers creates a new presence handlers instance.
func NewPresenceHandlers(tracker *presence.Tracker, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{
		tracker: tracker,
		log:     logger,
	}
}

// PresenceResponse represents a presence record in API responses.
type PresenceResponse struct {
	UserID   string `json:"user_id"`
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen"`
	TypingIn *int64 `json:"typing_in"`
}

// GetPresence returns a user's presence record.
// GET /api/presence/:user_id
func (h *PresenceHandlers) GetPresence(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	rec, err := h.tracker.Lookup(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to look up presence")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, PresenceResponse{
		UserID:   rec.UserID,
		Online:   rec.Online,
		LastSeen: rec.LastSeen.UTC().Format(time.RFC3339),
		TypingIn: rec.TypingIn,
	})
}
