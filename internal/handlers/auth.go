package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"chess-server/internal/audit"
	"chess-server/internal/middleware"
	"chess-server/internal/services"
)

type AuthHandler struct {
	users       *services.UserService
	frontendURL string
}

func NewAuthHandler(users *services.UserService, frontendURL string) *AuthHandler {
	return &AuthHandler{users: users, frontendURL: frontendURL}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

func sourceOf(r *http.Request) audit.Source {
	return audit.Source{IP: middleware.GetClientIP(r), UserAgent: r.UserAgent()}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.users.Register(ctx, req, sourceOf(r))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.users.Login(ctx, req, sourceOf(r))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// Logout revokes the bearer token and the optional refresh token in the body.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())
	token, _ := middleware.GetTokenFromContext(r.Context())

	var req LogoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if err := h.users.Logout(r.Context(), user, token, req.RefreshToken, sourceOf(r)); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.users.GoogleAuthURL(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GoogleOAuthCallback finishes sign-in and hands the tokens to the frontend
// in the URL fragment.
func (h *AuthHandler) GoogleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.users.GoogleLogin(r.Context(), q.Get("state"), q.Get("code"), sourceOf(r))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", res.AccessToken)
	fragment.Set("refresh_token", res.RefreshToken)
	http.Redirect(w, r, h.frontendURL+"/auth/callback#"+fragment.Encode(), http.StatusTemporaryRedirect)
}
