package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

const maxHistoryLimit = 200

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store        store.Store
	mediaURL     string
	historyLimit int
	log          *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, cfg *config.Config, logger *zerolog.Logger) *RoomHandlers {
	limit := cfg.HistoryLimit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = 50
	}
	return &RoomHandlers{
		store:        st,
		mediaURL:     cfg.MediaURL,
		historyLimit: limit,
		log:          logger,
	}
}

// CreateRoomRequest represents the create room request body.
// The caller is always added to the participants.
type CreateRoomRequest struct {
	Name         string   `json:"name" binding:"max=64"`
	Participants []string `json:"participants" binding:"max=256,dive,max=128"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Participants   []string `json:"participants"`
	CreatedAt      string   `json:"created_at"`
	LastActivityAt string   `json:"last_activity_at"`
}

// MessageResponse represents a stored message in API responses.
type MessageResponse struct {
	ID        int64    `json:"id"`
	RoomID    int64    `json:"room_id"`
	SenderID  string   `json:"sender_id"`
	Username  string   `json:"username"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	FileURL   *string  `json:"file_url"`
	FileSize  *int64   `json:"file_size,omitempty"`
	Readers   []string `json:"readers"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	participants := append([]string{uid}, req.Participants...)
	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, participants)
	if err != nil {
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().
		Int64("room_id", room.ID).
		Str("owner_id", uid).
		Int("participants", len(room.Participants)).
		Msg("room created successfully")
	c.JSON(http.StatusCreated, toRoomResponse(room))
}

// ListRooms handles listing the caller's rooms, most recently active first.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.store.ListRoomsForUser(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Debug().Str("user_id", uid).Int("room_count", len(rooms)).Msg("rooms listed successfully")
	c.JSON(http.StatusOK, lo.Map(rooms, func(r *store.Room, _ int) RoomResponse {
		return toRoomResponse(r)
	}))
}

// GetRoom returns a room the caller participates in.
// GET /api/rooms/:room_id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	room, ok := h.authorizedRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(room))
}

// ListMessages returns room history in ascending order.
// GET /api/rooms/:room_id/messages?before=ID&limit=N
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	room, ok := h.authorizedRoom(c)
	if !ok {
		return
	}

	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var before *int64
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before"})
			return
		}
		before = &id
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), room.ID, limit, before)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(msgs, func(m *store.Message, _ int) MessageResponse {
		return h.toMessageResponse(m)
	}))
}

// authorizedRoom loads :room_id and checks that the caller is a participant,
// writing the error response itself when not.
func (h *RoomHandlers) authorizedRoom(c *gin.Context) (*store.Room, bool) {
	uid, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil, false
	}

	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return nil, false
	}

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return nil, false
		}
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}

	if !room.HasParticipant(uid) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant of this room"})
		return nil, false
	}
	return room, true
}

func (h *RoomHandlers) toMessageResponse(m *store.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Username:  m.SenderName,
		Message:   m.Content,
		Timestamp: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		FileURL:   core.FileURL(h.mediaURL, m.File),
		Readers:   m.Readers,
	}
	if m.File != nil {
		size := m.File.Size
		resp.FileSize = &size
	}
	if resp.Readers == nil {
		resp.Readers = []string{}
	}
	return resp
}

func toRoomResponse(r *store.Room) RoomResponse {
	return RoomResponse{
		ID:             r.ID,
		Name:           r.Name,
		Participants:   r.Participants,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		LastActivityAt: r.LastActivityAt.UTC().Format(time.RFC3339),
	}
}
