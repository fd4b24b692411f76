package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrConflict  = errors.New("concurrent update")
)

// Store is the persistence boundary for users, games and tokens. Games are
// addressed by session ID.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, sessionID string) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	// UpdateGame stores game only if the stored Version still equals
	// game.Version, then increments game.Version. A stale copy gets ErrConflict.
	UpdateGame(ctx context.Context, game *models.Game) error

	InsertMove(ctx context.Context, move *models.Move) error
	ListMoves(ctx context.Context, sessionID string) ([]models.Move, error)

	StoreRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) error

	RevokeAccessToken(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, tokenHash string) (bool, error)

	SaveOAuthState(ctx context.Context, state string, expiresAt time.Time) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)

	InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error

	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}
