package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chess-server/internal/middleware"
)

// Routes bundles everything the router needs.
type Routes struct {
	Auth        *AuthHandler
	Games       *GameHandler
	WebSocket   *WebSocketHandler
	AuthMW      *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
}

func NewRouter(rt Routes) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders)

	rl := rt.RateLimiter
	byIP := func(cfg middleware.RateLimitConfig, h http.HandlerFunc) http.HandlerFunc {
		return rl.RateLimitHandler(cfg, middleware.GetClientIP, h)
	}

	router.HandleFunc("/ws/games/{sessionId}", byIP(middleware.WebSocketUpgradeLimit, rt.WebSocket.HandleWebSocket))

	api := router.PathPrefix("/api").Subrouter()

	// Auth routes (public)
	api.HandleFunc("/auth/register", byIP(middleware.AccountCreationLimit, rt.Auth.Register)).Methods("POST")
	api.HandleFunc("/auth/login", byIP(middleware.LoginAttemptLimit, rt.Auth.Login)).Methods("POST")
	api.HandleFunc("/auth/refresh", byIP(middleware.TokenRefreshLimit, rt.Auth.Refresh)).Methods("POST")
	api.HandleFunc("/auth/google", byIP(middleware.OAuthInitLimit, rt.Auth.GoogleOAuth)).Methods("GET")
	api.HandleFunc("/auth/google/callback", rt.Auth.GoogleOAuthCallback).Methods("GET")

	// Auth routes (protected)
	authAPI := api.PathPrefix("/auth").Subrouter()
	authAPI.Use(rt.AuthMW.RequireAuth)
	authAPI.HandleFunc("/logout", rt.Auth.Logout).Methods("POST")
	authAPI.HandleFunc("/me", rt.Auth.GetMe).Methods("GET")

	// Game reads are public
	api.HandleFunc("/games", rt.Games.ListGames).Methods("GET")
	api.HandleFunc("/games/{sessionId}", rt.Games.GetGame).Methods("GET")
	api.HandleFunc("/games/{sessionId}/moves", rt.Games.LegalMoves).Methods("GET")
	api.HandleFunc("/games/{sessionId}/history", rt.Games.History).Methods("GET")

	gameAPI := api.PathPrefix("/games").Subrouter()
	gameAPI.Use(rt.AuthMW.RequireAuth)
	gameAPI.HandleFunc("", byIP(middleware.GameCreationLimit, rt.Games.CreateGame)).Methods("POST")
	gameAPI.HandleFunc("/{sessionId}/join", rt.Games.JoinGame).Methods("POST")
	gameAPI.HandleFunc("/{sessionId}/move", rt.Games.MakeMove).Methods("POST")
	gameAPI.HandleFunc("/{sessionId}/resign", rt.Games.Resign).Methods("POST")
	gameAPI.HandleFunc("/{sessionId}/leave", rt.Games.Leave).Methods("POST")

	api.HandleFunc("/db", rt.Games.ClearDatabase).Methods("DELETE")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
