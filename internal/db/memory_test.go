package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/models"
)

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &models.User{Username: "alice", GoogleID: "g-1"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.False(t, u.ID.IsZero())

	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Username: "alice"}), ErrDuplicate)
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Username: "bob", GoogleID: "g-1"}), ErrDuplicate)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.GetUserByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)

	got.Email = "alice@example.com"
	require.NoError(t, s.UpdateUser(ctx, got))
	again, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", again.Email)

	assert.ErrorIs(t, s.UpdateUser(ctx, &models.User{ID: primitive.NewObjectID()}), ErrNotFound)
}

func TestMemoryStoreGamesReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now()
	require.NoError(t, s.CreateGame(ctx, &models.Game{SessionID: "b", GameName: "second", CreatedAt: now.Add(time.Second)}))
	require.NoError(t, s.CreateGame(ctx, &models.Game{SessionID: "a", GameName: "first", CreatedAt: now}))
	assert.ErrorIs(t, s.CreateGame(ctx, &models.Game{SessionID: "a"}), ErrDuplicate)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "first", games[0].GameName)

	g, err := s.GetGame(ctx, "a")
	require.NoError(t, err)
	g.GameName = "changed"

	stored, err := s.GetGame(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.GameName)

	require.NoError(t, s.UpdateGame(ctx, g))
	stored, err = s.GetGame(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", stored.GameName)

	_, err = s.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsStaleGameUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateGame(ctx, &models.Game{SessionID: "a", GameName: "first"}))

	first, err := s.GetGame(ctx, "a")
	require.NoError(t, err)
	second, err := s.GetGame(ctx, "a")
	require.NoError(t, err)

	first.MoveCount = 1
	require.NoError(t, s.UpdateGame(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.MoveCount = 5
	assert.ErrorIs(t, s.UpdateGame(ctx, second), ErrConflict)

	stored, err := s.GetGame(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MoveCount)
	assert.Equal(t, int64(1), stored.Version)

	require.NoError(t, s.UpdateGame(ctx, stored), "a fresh read can be written")
	assert.ErrorIs(t, s.UpdateGame(ctx, &models.Game{SessionID: "missing"}), ErrNotFound)
}

func TestMemoryStoreMoves(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertMove(ctx, &models.Move{SessionID: "a", MoveNumber: 1, From: "e2", To: "e4"}))
	require.NoError(t, s.InsertMove(ctx, &models.Move{SessionID: "a", MoveNumber: 2, From: "e7", To: "e5"}))
	require.NoError(t, s.InsertMove(ctx, &models.Move{SessionID: "b", MoveNumber: 1}))

	moves, err := s.ListMoves(ctx, "a")
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, "e7", moves[1].From)

	moves, err = s.ListMoves(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestMemoryStoreTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	userID := primitive.NewObjectID()

	require.NoError(t, s.StoreRefreshToken(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.StoreRefreshToken(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: "old",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := s.FindRefreshToken(ctx, userID, "h1")
	require.NoError(t, err)

	_, err = s.FindRefreshToken(ctx, primitive.NewObjectID(), "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindRefreshToken(ctx, userID, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RevokeRefreshToken(ctx, userID, "h1"))
	_, err = s.FindRefreshToken(ctx, userID, "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	revoked, err := s.IsAccessTokenRevoked(ctx, "access")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeAccessToken(ctx, "access", time.Now().Add(time.Hour)))
	revoked, err = s.IsAccessTokenRevoked(ctx, "access")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryStoreOAuthStateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveOAuthState(ctx, "st", time.Now().Add(time.Minute)))
	require.NoError(t, s.SaveOAuthState(ctx, "stale", time.Now().Add(-time.Minute)))

	ok, err := s.ConsumeOAuthState(ctx, "st")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeOAuthState(ctx, "st")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConsumeOAuthState(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "alice"}))
	require.NoError(t, s.CreateGame(ctx, &models.Game{SessionID: "a"}))
	require.NoError(t, s.InsertAuditEvent(ctx, &models.AuditEvent{EventType: "login_success"}))
	require.NoError(t, s.Clear(ctx))

	_, err := s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Len(t, s.AuditEvents(), 1)
}
