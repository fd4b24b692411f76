package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/audit"
	"chess-server/internal/auth"
	"chess-server/internal/db"
	"chess-server/internal/models"
	"chess-server/internal/utils"
)

const oauthStateTTL = 10 * time.Minute

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by every flow that issues tokens.
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

type UserService struct {
	store     db.Store
	jwt       *auth.JWTService
	passwords *auth.PasswordService
	google    auth.GoogleAuthenticator
	audit     *audit.Logger
}

func NewUserService(store db.Store, jwtService *auth.JWTService, passwords *auth.PasswordService, auditLog *audit.Logger) *UserService {
	return &UserService{
		store:     store,
		jwt:       jwtService,
		passwords: passwords,
		audit:     auditLog,
	}
}

// SetGoogleAuthenticator enables Google sign-in.
func (s *UserService) SetGoogleAuthenticator(g auth.GoogleAuthenticator) {
	s.google = g
}

func (s *UserService) GoogleEnabled() bool {
	return s.google != nil
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest, src audit.Source) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Password == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: username, password and email are required", ErrBadRequest)
	}
	if err := utils.ValidateUsername(req.Username); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrBadRequest)
	}
	if err := s.passwords.ValidatePasswordStrength(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		AuthMethods:  []models.AuthMethod{models.AuthMethodPassword},
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, fmt.Errorf("username %w", ErrAlreadyTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.Log(ctx, audit.EventRegister, &user.ID, user.Username, src, "")
	return s.issueTokens(ctx, user)
}

func (s *UserService) Login(ctx context.Context, req LoginRequest, src audit.Source) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrBadRequest)
	}

	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.audit.Log(ctx, audit.EventLoginFailed, nil, req.Username, src, "unknown user")
			return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.HasAuthMethod(models.AuthMethodPassword) || s.passwords.ComparePassword(user.PasswordHash, req.Password) != nil {
		s.audit.Log(ctx, audit.EventLoginFailed, &user.ID, user.Username, src, "bad password")
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}

	s.touchLogin(ctx, user)
	s.audit.Log(ctx, audit.EventLoginSuccess, &user.ID, user.Username, src, "")
	return s.issueTokens(ctx, user)
}

// Logout revokes the access token used for the request and, when given, the
// refresh token.
func (s *UserService) Logout(ctx context.Context, user *models.User, accessToken, refreshToken string, src audit.Source) error {
	if accessToken != "" {
		expiresAt := time.Now().Add(s.jwt.GetAccessTTL())
		if claims, err := s.jwt.ValidateAccessToken(accessToken); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := s.store.RevokeAccessToken(ctx, auth.HashToken(accessToken), expiresAt); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
	}
	if refreshToken != "" {
		if err := s.store.RevokeRefreshToken(ctx, user.ID, auth.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}

	s.audit.Log(ctx, audit.EventLogout, &user.ID, user.Username, src, "")
	return nil
}

// Refresh issues a new access token for a stored, unrevoked refresh token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrBadRequest)
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", ErrUnauthorized)
	}

	if _, err := s.store.FindRefreshToken(ctx, userID, auth.HashToken(refreshToken)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh token revoked or expired", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID.Hex(), user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwt.GetAccessTTL().Seconds()),
		User:        user,
	}, nil
}

// GoogleAuthURL creates a single-use state and returns the consent URL.
func (s *UserService) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", fmt.Errorf("%w: Google sign-in is not configured", ErrNotFound)
	}

	state, err := generateRandomState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := s.store.SaveOAuthState(ctx, state, time.Now().Add(oauthStateTTL)); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return s.google.GetAuthURL(state), nil
}

// GoogleLogin completes the OAuth callback. Existing Google users are
// matched by Google ID. New users get a username derived from their email.
func (s *UserService) GoogleLogin(ctx context.Context, state, code string, src audit.Source) (*AuthResponse, error) {
	if s.google == nil {
		return nil, fmt.Errorf("%w: Google sign-in is not configured", ErrNotFound)
	}
	if state == "" || code == "" {
		return nil, fmt.Errorf("%w: missing state or code", ErrBadRequest)
	}

	ok, err := s.store.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to check oauth state: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, auth.ErrInvalidOAuthState)
	}

	info, err := s.google.Authenticate(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.store.GetUserByGoogleID(ctx, info.ID)
	switch {
	case err == nil:
		s.touchLogin(ctx, user)
	case errors.Is(err, db.ErrNotFound):
		user, err = s.createGoogleUser(ctx, info)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	s.audit.Log(ctx, audit.EventOAuthLogin, &user.ID, user.Username, src, "google")
	return s.issueTokens(ctx, user)
}

func (s *UserService) createGoogleUser(ctx context.Context, info *auth.GoogleUserInfo) (*models.User, error) {
	username, err := utils.GenerateUniqueUsername(ctx, utils.SanitizeUsername(info.Email), s.usernameTaken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:    username,
		Email:       strings.ToLower(info.Email),
		GoogleID:    info.ID,
		AuthMethods: []models.AuthMethod{models.AuthMethodGoogle},
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: &now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("[UserService] Created Google user %s", user.Username)
	return user, nil
}

func (s *UserService) usernameTaken(ctx context.Context, name string) (bool, error) {
	_, err := s.store.GetUserByUsername(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *UserService) touchLogin(ctx context.Context, user *models.User) {
	now := time.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		log.Printf("[UserService] Failed to update last login for %s: %v", user.Username, err)
	}
}

func (s *UserService) issueTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	userID := user.ID.Hex()

	accessToken, err := s.jwt.GenerateAccessToken(userID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(userID, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	if err := s.store.StoreRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: now.Add(s.jwt.GetRefreshTTL()),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.GetAccessTTL().Seconds()),
		User:         user,
	}, nil
}

func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
