package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

func doJSON(t *testing.T, srv *testServer, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	srv.ts.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func TestCreateRoom(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(t, "alice")

	resp := doJSON(t, srv, http.MethodPost, "/api/rooms", token, `{"name":"project","participants":["bob"," bob ","alice"]}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var room RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &room); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if room.Name != "project" {
		t.Errorf("expected room name 'project', got '%s'", room.Name)
	}
	require.ElementsMatch(t, []string{"alice", "bob"}, room.Participants)

	// Creator alone is a valid room.
	resp = doJSON(t, srv, http.MethodPost, "/api/rooms", token, `{}`)
	if resp.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, srv, http.MethodPost, "/api/rooms", "", `{"name":"should-fail"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}

	resp = doJSON(t, srv, http.MethodPost, "/api/rooms", token, `{"participants":"bob"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
}

func TestListRooms(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	first := srv.createRoom(t, "alice", "bob")
	second := srv.createRoom(t, "alice")
	srv.createRoom(t, "carol")

	// A message moves the first room to the top.
	_, err := srv.store.CreateMessage(ctx, store.NewMessage{
		RoomID: first, SenderID: "bob", SenderName: "bob", Content: "ping",
		CreatedAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	resp := doJSON(t, srv, http.MethodGet, "/api/rooms", srv.token(t, "alice"), "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var rooms []RoomResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rooms))
	require.Len(t, rooms, 2)
	require.Equal(t, first, rooms[0].ID)
	require.Equal(t, second, rooms[1].ID)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetRoomAccess(t *testing.T) {
	srv := newTestServer(t, nil)
	roomID := srv.createRoom(t, "alice", "bob")

	resp := doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID), srv.token(t, "bob"), "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID), srv.token(t, "eve"), "")
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms/424242", srv.token(t, "bob"), "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListMessagesPagination(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, nil)
	ctx := context.Background()
	roomID := srv.createRoom(t, "alice", "bob")

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	var ids []int64
	for i, text := range []string{"one", "two", "three"} {
		msg, err := srv.store.CreateMessage(ctx, store.NewMessage{
			RoomID: roomID, SenderID: "alice", SenderName: "alice", Content: text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
		ids = append(ids, msg.ID)
	}
	req.NoError(srv.store.AddReader(ctx, ids[0], "bob"))

	token := srv.token(t, "bob")
	resp := doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID)+"/messages", token, "")
	req.Equal(http.StatusOK, resp.Code, resp.Body.String())

	var msgs []MessageResponse
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &msgs))
	req.Len(msgs, 3)
	req.Equal("one", msgs[0].Message)
	req.Equal("three", msgs[2].Message)
	req.Equal([]string{"bob"}, msgs[0].Readers)
	req.Empty(msgs[1].Readers)
	req.Nil(msgs[0].FileURL)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID)+"/messages?limit=1&before="+itoa(ids[2]), token, "")
	req.Equal(http.StatusOK, resp.Code)
	req.NoError(json.Unmarshal(resp.Body.Bytes(), &msgs))
	req.Len(msgs, 1)
	req.Equal("two", msgs[0].Message)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID)+"/messages?limit=zero", token, "")
	req.Equal(http.StatusBadRequest, resp.Code)

	resp = doJSON(t, srv, http.MethodGet, "/api/rooms/"+itoa(roomID)+"/messages", srv.token(t, "eve"), "")
	req.Equal(http.StatusForbidden, resp.Code)
}

func TestGetPresence(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(t, "alice")

	resp := doJSON(t, srv, http.MethodGet, "/api/presence/bob", token, "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	require.NoError(t, srv.tracker.Connected(context.Background(), "bob"))
	resp = doJSON(t, srv, http.MethodGet, "/api/presence/bob", token, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var rec PresenceResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	require.Equal(t, "bob", rec.UserID)
	require.True(t, rec.Online)
	require.Nil(t, rec.TypingIn)
}
