package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chess-server/internal/game"
)

type GameStatus string

const (
	GameStatusActive   GameStatus = "active"   // Game in progress
	GameStatusComplete GameStatus = "complete" // Game finished
)

// Win reasons recorded on completed games.
const (
	WinReasonCheckmate   = "checkmate"
	WinReasonStalemate   = "stalemate"
	WinReasonResignation = "resignation"
)

type Game struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID     string             `json:"sessionId" bson:"sessionId"`
	GameName      string             `json:"gameName" bson:"gameName"`
	WhiteUsername string             `json:"whiteUsername,omitempty" bson:"whiteUsername,omitempty"`
	BlackUsername string             `json:"blackUsername,omitempty" bson:"blackUsername,omitempty"`
	Status        GameStatus         `json:"status" bson:"status"`
	CurrentTurn   game.Color         `json:"currentTurn" bson:"currentTurn"`
	BoardState    string             `json:"boardState" bson:"boardState"` // FEN notation
	Winner        game.Color         `json:"winner,omitempty" bson:"winner,omitempty"`
	WinReason     string             `json:"winReason,omitempty" bson:"winReason,omitempty"`
	MoveCount     int                `json:"moveCount" bson:"moveCount"`
	Version       int64              `json:"version" bson:"version"` // bumped by every stored update
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// SeatOf returns the color username plays in this game, if any.
func (g *Game) SeatOf(username string) (game.Color, bool) {
	switch {
	case username == "":
		return "", false
	case g.WhiteUsername == username:
		return game.White, true
	case g.BlackUsername == username:
		return game.Black, true
	}
	return "", false
}

// Summary is the listing view of a game, without the board.
type Summary struct {
	SessionID     string     `json:"sessionId"`
	GameName      string     `json:"gameName"`
	WhiteUsername string     `json:"whiteUsername,omitempty"`
	BlackUsername string     `json:"blackUsername,omitempty"`
	Status        GameStatus `json:"status"`
}

func (g *Game) Summary() Summary {
	return Summary{
		SessionID:     g.SessionID,
		GameName:      g.GameName,
		WhiteUsername: g.WhiteUsername,
		BlackUsername: g.BlackUsername,
		Status:        g.Status,
	}
}

type Move struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID  string             `json:"sessionId" bson:"sessionId"`
	Username   string             `json:"username" bson:"username"`
	MoveNumber int                `json:"moveNumber" bson:"moveNumber"`
	From       string             `json:"from" bson:"from"` // e.g., "e2"
	To         string             `json:"to" bson:"to"`     // e.g., "e4"
	Piece      game.PieceType     `json:"piece" bson:"piece"`
	Promotion  game.PieceType     `json:"promotion,omitempty" bson:"promotion,omitempty"`
	Capture    bool               `json:"capture" bson:"capture"`
	Check      bool               `json:"check" bson:"check"`
	Checkmate  bool               `json:"checkmate" bson:"checkmate"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}
