// internal/handlers/api_server_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmesh/lobby/internal/auth"
	"github.com/quickmesh/lobby/internal/lobby"
	"github.com/quickmesh/lobby/internal/moderator"
	"github.com/quickmesh/lobby/internal/storage"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := lobby.NewService(storage.NewMemory(), auth.NewCodec("test-secret"), moderator.Passthrough{}, logger, lobby.Config{})

	mux := http.NewServeMux()
	mux.Handle("/lobbies", ListLobbiesHandler(svc, logger))
	mux.Handle("/create", CreateLobbyHandler(svc, logger))
	mux.Handle("/join", JoinLobbyHandler(svc, logger))
	mux.Handle("/leave", LeaveLobbyHandler(svc, logger))
	mux.Handle("/kick", KickHandler(svc, logger))
	mux.Handle("/destroy", DestroyLobbyHandler(svc, logger))
	mux.Handle("/ping", PingHandler(svc))
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestCreateJoinLeaveFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/create", lobby.CreateRequest{
		Game:              "asteroids",
		LobbyDisplayName:  "My Lobby",
		PlayerDisplayName: "Alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var created lobby.CreateResponse
	decodeInto(t, rec, &created)
	require.NotEmpty(t, created.Token)
	require.NotNil(t, created.Lobby)
	require.NotNil(t, created.User)
	assert.Equal(t, created.User.ID, created.Lobby.Leader)

	rec = doJSON(t, mux, http.MethodPost, "/join", lobby.JoinRequest{
		Game:              "asteroids",
		LobbyID:           created.Lobby.ID,
		PlayerDisplayName: "Bob",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var joined lobby.JoinResponse
	decodeInto(t, rec, &joined)
	require.NotEmpty(t, joined.Token)
	assert.Len(t, joined.Lobby.Participants, 2)

	rec = doJSON(t, mux, http.MethodPost, "/leave", lobby.LeaveRequest{Token: joined.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/leave", lobby.LeaveRequest{Token: created.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	// Everybody left; the lobby is gone.
	rec = doJSON(t, mux, http.MethodPost, "/join", lobby.JoinRequest{
		Game:              "asteroids",
		LobbyID:           created.Lobby.ID,
		PlayerDisplayName: "Carol",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	mux := newTestMux(t)

	// Missing field -> 400 with the reason in the body.
	rec := doJSON(t, mux, http.MethodPost, "/create", lobby.CreateRequest{Game: "asteroids"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	decodeInto(t, rec, &body)
	assert.Contains(t, body.Reason, "lobbyDisplayName")

	// Unknown lobby -> 404.
	rec = doJSON(t, mux, http.MethodPost, "/join", lobby.JoinRequest{
		Game:              "asteroids",
		LobbyID:           "nope",
		PlayerDisplayName: "Bob",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	decodeInto(t, rec, &body)
	assert.Equal(t, "Lobby not found", body.Reason)

	// Non-leader kick -> 403.
	rec = doJSON(t, mux, http.MethodPost, "/create", lobby.CreateRequest{
		Game:              "asteroids",
		LobbyDisplayName:  "L",
		PlayerDisplayName: "Alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created lobby.CreateResponse
	decodeInto(t, rec, &created)

	rec = doJSON(t, mux, http.MethodPost, "/join", lobby.JoinRequest{
		Game:              "asteroids",
		LobbyID:           created.Lobby.ID,
		PlayerDisplayName: "Bob",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var joined lobby.JoinResponse
	decodeInto(t, rec, &joined)

	rec = doJSON(t, mux, http.MethodPost, "/kick", lobby.KickRequest{
		Token:        joined.Token,
		KickedUserID: created.User.ID,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	decodeInto(t, rec, &body)
	assert.Equal(t, "Only the leader can kick a user", body.Reason)

	// Non-leader destroy -> 403.
	rec = doJSON(t, mux, http.MethodPost, "/destroy", lobby.DestroyRequest{Token: joined.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bogus token -> 400.
	rec = doJSON(t, mux, http.MethodPost, "/leave", lobby.LeaveRequest{Token: "garbage"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeInto(t, rec, &body)
	assert.Equal(t, "Invalid token", body.Reason)
}

func TestMalformedBody(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	decodeInto(t, rec, &body)
	assert.Equal(t, "Invalid request body", body.Reason)
}

func TestListLobbies(t *testing.T) {
	mux := newTestMux(t)

	// Fresh lobbies have nobody connected yet, so the listing is empty.
	rec := doJSON(t, mux, http.MethodPost, "/create", lobby.CreateRequest{
		Game:              "asteroids",
		LobbyDisplayName:  "L",
		PlayerDisplayName: "Alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/lobbies?game=asteroids", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed lobby.ListLobbiesResponse
	decodeInto(t, rec, &listed)
	assert.Empty(t, listed.Lobbies)

	// Missing game parameter -> 400.
	rec = doJSON(t, mux, http.MethodGet, "/lobbies", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPing(t *testing.T) {
	mux := newTestMux(t)
	rec := doJSON(t, mux, http.MethodPost, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())
}
