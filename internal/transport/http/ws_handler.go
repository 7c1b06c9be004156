package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arhamfareed106/Social-Network-Platform/internal/auth"
	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
	"github.com/arhamfareed106/Social-Network-Platform/internal/presence"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub      *core.Hub
	auth     *auth.Service
	store    store.Store
	presence *presence.Tracker
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(
	hub *core.Hub,
	authService *auth.Service,
	st store.Store,
	tracker *presence.Tracker,
	cfg *config.Config,
	logger *zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		hub:      hub,
		auth:     authService,
		store:    st,
		presence: tracker,
		cfg:      cfg,
		log:      logger,
	}
}

// Handle serves GET /ws/chat/:room_id. The session is subscribed before the
// upgrade is accepted and announced after it; authorization failures are plain
// HTTP errors and a refused upgrade publishes nothing.
func (h *WSHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	if _, err := h.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("load room")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	principal, err := h.auth.Principal(requestToken(c.Request))
	if err != nil {
		h.log.Debug().Err(err).Int64("room_id", roomID).Msg("ws token rejected")
	}

	session := core.NewSession(core.SessionDeps{
		Hub:            h.hub,
		Store:          h.store,
		Presence:       h.presence,
		Logger:         h.log,
		SendBuffer:     h.cfg.SendBuffer,
		MediaURL:       h.cfg.MediaURL,
		CleanupTimeout: h.cfg.CleanupTimeout,
	}, principal, roomID)

	if err := session.Subscribe(ctx); err != nil {
		status := stdhttp.StatusInternalServerError
		switch core.KindOf(err) {
		case core.KindUnauthorized:
			status = stdhttp.StatusUnauthorized
		case core.KindForbidden:
			status = stdhttp.StatusForbidden
		default:
			h.log.Error().Err(err).Int64("room_id", roomID).Msg("ws subscribe failed")
		}
		c.JSON(status, ErrorResponse{Error: stdhttp.StatusText(status)})
		return
	}

	// gin's writer refuses to hijack once headers are flushed, which Accept does first.
	var rw stdhttp.ResponseWriter = c.Writer
	if u, ok := rw.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		rw = u.Unwrap()
	}

	conn, err := websocket.Accept(rw, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("ws accept error")
		session.Disconnect(ctx)
		return
	}
	defer conn.CloseNow()

	if err := session.Announce(ctx); err != nil {
		h.log.Warn().Err(err).Str("session_id", session.ID()).Msg("ws announce failed")
		session.Disconnect(ctx)
		_ = conn.Close(websocket.StatusInternalError, "session closed")
		return
	}

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.readLoop(gctx, conn, session)
	})
	g.Go(func() error {
		return session.WritePump(gctx, &connWriter{conn: conn, timeout: h.cfg.WriteTimeout})
	})
	if h.cfg.PingInterval > 0 {
		g.Go(func() error {
			return h.pingLoop(gctx, conn)
		})
	}

	err = g.Wait()
	session.Disconnect(ctx)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("session_id", session.ID()).Msg("ws connection closed with error")
		}
	}

	_ = conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.log.Debug().Str("session_id", session.ID()).Msg("drop binary frame")
			continue
		}
		if !limiter.allow() {
			h.log.Debug().Str("session_id", session.ID()).Msg("rate limit exceeded, frame dropped")
			continue
		}
		if err := session.HandleFrame(ctx, data); errors.Is(err, core.ErrNotSubscribed) {
			return err
		}
	}
}

func (h *WSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// connWriter adapts a websocket connection to core.FrameWriter.
type connWriter struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (w *connWriter) WriteFrame(ctx context.Context, data []byte) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.conn.Write(ctx, websocket.MessageText, data)
}
