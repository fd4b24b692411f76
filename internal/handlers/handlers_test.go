package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-server/internal/audit"
	"chess-server/internal/auth"
	"chess-server/internal/db"
	"chess-server/internal/game"
	"chess-server/internal/middleware"
	"chess-server/internal/services"
)

type testServer struct {
	*httptest.Server
	hub   *Hub
	games *services.GameService
}

func newTestServer(t *testing.T, allowClear bool) *testServer {
	t.Helper()

	store := db.NewMemoryStore()
	jwtService := auth.NewJWTService("access", "refresh", time.Hour, 24*time.Hour)
	users := services.NewUserService(store, jwtService, auth.NewPasswordServiceWithCost(4), audit.NewLogger(store))
	games := services.NewGameService(store)
	authMW := middleware.NewAuthMiddleware(jwtService, store)

	hub := NewHub()
	games.SetObserver(hub)

	rl := middleware.NewRateLimiter()
	t.Cleanup(rl.Stop)

	router := NewRouter(Routes{
		Auth:        NewAuthHandler(users, "http://frontend.test"),
		Games:       NewGameHandler(games, allowClear),
		WebSocket:   NewWebSocketHandler(hub, games, authMW),
		AuthMW:      authMW,
		RateLimiter: rl,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub, games: games}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "knight4life",
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["accessToken"].(string)
}

func (s *testServer) createGame(t *testing.T, token string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/games", token, map[string]string{"gameName": "test"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["sessionId"].(string)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, false)

	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "knight4life",
		"email":    "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["accessToken"].(string)
	refresh := body["refreshToken"].(string)
	assert.NotContains(t, body["user"], "passwordHash")

	resp, body = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "knight4life",
		"email":    "other@example.com",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["error"], "already taken")

	resp, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope12345"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "knight4life"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])

	resp, body = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])

	resp, body = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])

	resp, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "Google sign-in is off without credentials")
}

func TestGameFlow(t *testing.T) {
	s := newTestServer(t, false)
	white := s.register(t, "white")
	black := s.register(t, "black")

	resp, _ := s.do(t, http.MethodPost, "/api/games", "", map[string]string{"gameName": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/games", white, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	id := s.createGame(t, white)

	resp, body := s.do(t, http.MethodGet, "/api/games", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["games"], 1)

	resp, _ = s.do(t, http.MethodPost, "/api/games/"+id+"/join", white, map[string]string{"playerColor": "WHITE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/join", black, map[string]string{"playerColor": "WHITE"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["error"], "already taken")
	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/join", white, map[string]string{"playerColor": "BLACK"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["error"], "already play WHITE")
	resp, _ = s.do(t, http.MethodPost, "/api/games/"+id+"/join", black, map[string]string{"playerColor": "BLACK"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/games/missing/join", black, map[string]string{"playerColor": "BLACK"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/games/"+id+"/moves?from=b1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["moves"], 2)

	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/move", black, map[string]string{"uci": "e7e5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "not your turn")

	resp, _ = s.do(t, http.MethodPost, "/api/games/"+id+"/move", white, map[string]string{"uci": "e2e5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/move", white, map[string]string{"uci": "e2e4"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "in_progress", body["outcome"])

	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/move", black, map[string]interface{}{
		"move": map[string]interface{}{
			"startPosition": map[string]int{"row": 7, "col": 5},
			"endPosition":   map[string]int{"row": 5, "col": 5},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = s.do(t, http.MethodGet, "/api/games/"+id+"/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["moves"], 2)

	resp, body = s.do(t, http.MethodGet, "/api/games/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := body["board"].([]interface{})
	require.Len(t, board, 8)
	rank4 := board[3].([]interface{})
	assert.Equal(t, map[string]interface{}{"teamColor": "WHITE", "pieceType": "PAWN"}, rank4[4])

	resp, _ = s.do(t, http.MethodPost, "/api/games/"+id+"/resign", black, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/games/"+id+"/move", white, map[string]string{"uci": "d2d4"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/games/"+id+"/leave", white, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["whiteUsername"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: gameName is required", services.ErrBadRequest), http.StatusBadRequest},
		{&game.MoveError{Reason: game.ErrSelfCheck}, http.StatusBadRequest},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: you already play WHITE", services.ErrAlreadyTaken), http.StatusForbidden},
		{services.ErrNotAPlayer, http.StatusForbidden},
		{fmt.Errorf("game %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrGameOver, http.StatusConflict},
		{services.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestClearDatabase(t *testing.T) {
	locked := newTestServer(t, false)
	resp, _ := locked.do(t, http.MethodDelete, "/api/db", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	open := newTestServer(t, true)
	token := open.register(t, "alice")
	open.createGame(t, token)

	resp, _ = open.do(t, http.MethodDelete, "/api/db", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := open.do(t, http.MethodGet, "/api/games", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["games"])
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s := newTestServer(t, false)
	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
