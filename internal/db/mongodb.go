package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chess-server/internal/models"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"games",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
			},
		},
		{
			"moves",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "moveNumber", Value: 1}}},
			},
		},
		{
			"users",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			},
		},
		{
			"refresh_tokens",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "tokenHash", Value: 1}}},
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			"revoked_tokens",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
				{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			"oauth_states",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			"audit_log",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600)},
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		_, err := coll.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			log.Printf("Warning: failed to create indexes on %s: %v", idx.collection, err)
		}
	}

	log.Println("Database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Games() *mongo.Collection {
	return m.Database.Collection("games")
}

func (m *MongoDB) Moves() *mongo.Collection {
	return m.Database.Collection("moves")
}

func (m *MongoDB) Users() *mongo.Collection {
	return m.Database.Collection("users")
}

func (m *MongoDB) RefreshTokens() *mongo.Collection {
	return m.Database.Collection("refresh_tokens")
}

func (m *MongoDB) RevokedTokens() *mongo.Collection {
	return m.Database.Collection("revoked_tokens")
}

func (m *MongoDB) OAuthStates() *mongo.Collection {
	return m.Database.Collection("oauth_states")
}

func (m *MongoDB) AuditLog() *mongo.Collection {
	return m.Database.Collection("audit_log")
}

func (m *MongoDB) WSEvents() *mongo.Collection {
	return m.Database.Collection("ws_events")
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := m.Users().InsertOne(ctx, user)
	return translate(err)
}

func (m *MongoDB) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

func (m *MongoDB) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"googleId": googleID})
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := m.Users().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (m *MongoDB) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := m.Users().ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDB) CreateGame(ctx context.Context, game *models.Game) error {
	if game.ID.IsZero() {
		game.ID = primitive.NewObjectID()
	}
	_, err := m.Games().InsertOne(ctx, game)
	return translate(err)
}

func (m *MongoDB) GetGame(ctx context.Context, sessionID string) (*models.Game, error) {
	var game models.Game
	if err := m.Games().FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&game); err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (m *MongoDB) ListGames(ctx context.Context) ([]models.Game, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := m.Games().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	games := []models.Game{}
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (m *MongoDB) UpdateGame(ctx context.Context, game *models.Game) error {
	filter := bson.M{"sessionId": game.SessionID, "version": game.Version}
	if game.Version == 0 {
		// Documents written before versioning have no version field.
		filter["version"] = bson.M{"$in": bson.A{0, nil}}
	}

	next := *game
	next.Version++
	result, err := m.Games().ReplaceOne(ctx, filter, &next)
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		count, err := m.Games().CountDocuments(ctx, bson.M{"sessionId": game.SessionID})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	game.Version = next.Version
	return nil
}

func (m *MongoDB) InsertMove(ctx context.Context, move *models.Move) error {
	if move.ID.IsZero() {
		move.ID = primitive.NewObjectID()
	}
	_, err := m.Moves().InsertOne(ctx, move)
	return translate(err)
}

func (m *MongoDB) ListMoves(ctx context.Context, sessionID string) ([]models.Move, error) {
	opts := options.Find().SetSort(bson.D{{Key: "moveNumber", Value: 1}})
	cursor, err := m.Moves().Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	moves := []models.Move{}
	if err := cursor.All(ctx, &moves); err != nil {
		return nil, err
	}
	return moves, nil
}

func (m *MongoDB) StoreRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	_, err := m.RefreshTokens().InsertOne(ctx, token)
	return translate(err)
}

func (m *MongoDB) FindRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := m.RefreshTokens().FindOne(ctx, bson.M{
		"userId":    userID,
		"tokenHash": tokenHash,
		"isRevoked": false,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(&token)
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (m *MongoDB) RevokeRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) error {
	_, err := m.RefreshTokens().UpdateOne(ctx,
		bson.M{"userId": userID, "tokenHash": tokenHash},
		bson.M{"$set": bson.M{"isRevoked": true}},
	)
	return translate(err)
}

func (m *MongoDB) RevokeAccessToken(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	opts := options.Update().SetUpsert(true)
	_, err := m.RevokedTokens().UpdateOne(ctx,
		bson.M{"tokenHash": tokenHash},
		bson.M{"$setOnInsert": models.RevokedToken{TokenHash: tokenHash, ExpiresAt: expiresAt}},
		opts,
	)
	return translate(err)
}

func (m *MongoDB) IsAccessTokenRevoked(ctx context.Context, tokenHash string) (bool, error) {
	count, err := m.RevokedTokens().CountDocuments(ctx, bson.M{"tokenHash": tokenHash})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) SaveOAuthState(ctx context.Context, state string, expiresAt time.Time) error {
	_, err := m.OAuthStates().InsertOne(ctx, bson.M{
		"state":     state,
		"expiresAt": expiresAt,
	})
	return translate(err)
}

// ConsumeOAuthState atomically removes an unexpired state.
func (m *MongoDB) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	err := m.OAuthStates().FindOneAndDelete(ctx, bson.M{
		"state":     state,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MongoDB) InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	_, err := m.AuditLog().InsertOne(ctx, event)
	return translate(err)
}

// Clear removes all users, games, moves and tokens. The audit log is kept.
func (m *MongoDB) Clear(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{m.Games(), m.Moves(), m.RefreshTokens(), m.RevokedTokens(), m.Users()} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
		}
	}
	return nil
}

var _ Store = (*MongoDB)(nil)
