package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/models"
)

// MemoryStore keeps everything in maps. It is used for local development and
// tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	games         map[string]models.Game
	moves         map[string][]models.Move
	refreshTokens map[string]models.RefreshToken
	revoked       map[string]time.Time
	oauthStates   map[string]time.Time
	auditLog      []models.AuditEvent
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) reset() {
	s.users = make(map[primitive.ObjectID]models.User)
	s.games = make(map[string]models.Game)
	s.moves = make(map[string][]models.Move)
	s.refreshTokens = make(map[string]models.RefreshToken)
	s.revoked = make(map[string]time.Time)
	s.oauthStates = make(map[string]time.Time)
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
		if user.GoogleID != "" && u.GoogleID == user.GoogleID {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.Username == username })
}

func (s *MemoryStore) GetUserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.GoogleID == googleID })
}

func (s *MemoryStore) findUser(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		u := u
		if match(&u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) CreateGame(_ context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[game.SessionID]; ok {
		return ErrDuplicate
	}
	if game.ID.IsZero() {
		game.ID = primitive.NewObjectID()
	}
	s.games[game.SessionID] = *game
	return nil
}

func (s *MemoryStore) GetGame(_ context.Context, sessionID string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) ListGames(_ context.Context) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

func (s *MemoryStore) UpdateGame(_ context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.games[game.SessionID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != game.Version {
		return ErrConflict
	}
	game.Version++
	s.games[game.SessionID] = *game
	return nil
}

func (s *MemoryStore) InsertMove(_ context.Context, move *models.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if move.ID.IsZero() {
		move.ID = primitive.NewObjectID()
	}
	s.moves[move.SessionID] = append(s.moves[move.SessionID], *move)
	return nil
}

func (s *MemoryStore) ListMoves(_ context.Context, sessionID string) ([]models.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	moves := make([]models.Move, len(s.moves[sessionID]))
	copy(moves, s.moves[sessionID])
	return moves, nil
}

func (s *MemoryStore) StoreRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	s.refreshTokens[token.TokenHash] = *token
	return nil
}

func (s *MemoryStore) FindRefreshToken(_ context.Context, userID primitive.ObjectID, tokenHash string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.refreshTokens[tokenHash]
	if !ok || t.UserID != userID || t.IsRevoked || time.Now().After(t.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) RevokeRefreshToken(_ context.Context, userID primitive.ObjectID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refreshTokens[tokenHash]
	if !ok || t.UserID != userID {
		return nil
	}
	t.IsRevoked = true
	s.refreshTokens[tokenHash] = t
	return nil
}

func (s *MemoryStore) RevokeAccessToken(_ context.Context, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenHash] = expiresAt
	return nil
}

func (s *MemoryStore) IsAccessTokenRevoked(_ context.Context, tokenHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[tokenHash]
	return ok, nil
}

func (s *MemoryStore) SaveOAuthState(_ context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.oauthStates[state] = expiresAt
	return nil
}

// ConsumeOAuthState deletes the state and reports whether it existed and was
// still valid.
func (s *MemoryStore) ConsumeOAuthState(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.oauthStates[state]
	if !ok {
		return false, nil
	}
	delete(s.oauthStates, state)
	return time.Now().Before(expiresAt), nil
}

func (s *MemoryStore) InsertAuditEvent(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	s.auditLog = append(s.auditLog, *event)
	return nil
}

// AuditEvents returns a copy of the recorded audit trail.
func (s *MemoryStore) AuditEvents() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.AuditEvent, len(s.auditLog))
	copy(events, s.auditLog)
	return events
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
