package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/arhamfareed106/Social-Network-Platform/internal/auth"
	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
	"github.com/arhamfareed106/Social-Network-Platform/internal/presence"
	"github.com/arhamfareed106/Social-Network-Platform/internal/proto"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/files"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/sqlite"
)

type testServer struct {
	ts      *httptest.Server
	store   *sqlite.SQLiteStore
	auth    *auth.Service
	hub     *core.Hub
	tracker *presence.Tracker
	cfg     config.Config
}

// newTestServer starts a full server on an in-memory SQLite store.
func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.DatabasePath = ":memory:"
	cfg.MediaRoot = t.TempDir()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.New(cfg.DatabasePath, files.NewDisk(cfg.MediaRoot))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	authService := createTestAuthService(t, cfg.JWTSecret)
	tracker := presence.NewTracker(st, &logger)
	hub := core.NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, authService, st, tracker, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, auth: authService, hub: hub, tracker: tracker, cfg: cfg}
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return auth.NewService(jwtConfig)
}

func (s *testServer) token(t *testing.T, user string) string {
	t.Helper()
	token, err := s.auth.IssueToken(user, user, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) createRoom(t *testing.T, users ...string) int64 {
	t.Helper()
	room, err := s.store.CreateRoom(context.Background(), "", users)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room.ID
}

func (s *testServer) wsURL(roomID string) string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws/chat/" + roomID
}

// dial connects user to room and fails the test on error.
func (s *testServer) dial(ctx context.Context, t *testing.T, user string, roomID int64) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, s.wsURL(itoa(roomID))+"?token="+s.token(t, user), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", user, err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// readUntil reads frames until match returns true.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, match func(proto.Outbound) bool) proto.Outbound {
	t.Helper()
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read outbound: %v", err)
		}
		if match(out) {
			return out
		}
	}
}

func ofType(typ string) func(proto.Outbound) bool {
	return func(o proto.Outbound) bool { return o.Type == typ }
}

func statusOf(user, status string) func(proto.Outbound) bool {
	return func(o proto.Outbound) bool {
		return o.Type == proto.OutboundTypeStatus && o.Username == user && o.Status == status
	}
}
