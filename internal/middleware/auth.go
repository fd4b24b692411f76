package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/auth"
	"chess-server/internal/db"
	"chess-server/internal/models"
)

type contextKey string

const (
	UserContextKey  contextKey = "user"
	TokenContextKey contextKey = "token"
)

var errRevokedToken = errors.New("token has been revoked")

type AuthMiddleware struct {
	jwtService *auth.JWTService
	store      db.Store
}

func NewAuthMiddleware(jwtService *auth.JWTService, store db.Store) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		store:      store,
	}
}

// RequireAuth validates the bearer token and loads the user into the context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "Authorization header required")
			return
		}

		user, err := m.Authenticate(r.Context(), token)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, TokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth loads the user when a valid token is present and otherwise
// lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if user, err := m.Authenticate(r.Context(), token); err == nil {
				ctx := context.WithValue(r.Context(), UserContextKey, user)
				ctx = context.WithValue(ctx, TokenContextKey, token)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves an access token to its user. It is shared with the
// WebSocket handler, whose commands carry the token in the payload.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	if m.isTokenRevoked(ctx, token) {
		return nil, errRevokedToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	user, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

func (m *AuthMiddleware) isTokenRevoked(ctx context.Context, rawToken string) bool {
	revoked, err := m.store.IsAccessTokenRevoked(ctx, auth.HashToken(rawToken))
	if err != nil {
		log.Printf("Warning: revoked-token lookup failed: %v", err)
		return false
	}
	return revoked
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetTokenFromContext returns the raw access token the request authenticated with.
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenContextKey).(string)
	return token, ok
}
