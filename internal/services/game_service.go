package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chess-server/internal/db"
	"chess-server/internal/game"
	"chess-server/internal/models"
)

// Seat requested when joining. Observer is also what an empty color means.
const Observer = "OBSERVER"

// GameObserver is told about every state change, whichever transport caused
// it. The WebSocket hub implements it to fan out to connected clients.
type GameObserver interface {
	PlayerJoined(g *models.Game, username string, seat string)
	PlayerLeft(g *models.Game, username string)
	MoveMade(g *models.Game, move *models.Move)
	PlayerResigned(g *models.Game, username string)
}

// GameView is a stored game together with its decoded board.
type GameView struct {
	Game  *models.Game `json:"game"`
	Board *game.Board  `json:"board"`
}

// MoveResult describes an accepted move.
type MoveResult struct {
	GameView
	Move    *models.Move `json:"move"`
	Outcome game.Outcome `json:"outcome"`
}

type GameService struct {
	store    db.Store
	locks    *gameLocks
	observer GameObserver
}

func NewGameService(store db.Store) *GameService {
	return &GameService{
		store: store,
		locks: newGameLocks(),
	}
}

func (s *GameService) SetObserver(o GameObserver) {
	s.observer = o
}

func (s *GameService) CreateGame(ctx context.Context, name string) (*models.Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: gameName is required", ErrBadRequest)
	}

	now := time.Now()
	g := &models.Game{
		SessionID:   uuid.NewString(),
		GameName:    name,
		Status:      models.GameStatusActive,
		CurrentTurn: game.White,
		BoardState:  game.InitialFEN,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Printf("[GameService] Created game %s (%q)", g.SessionID, g.GameName)
	return g, nil
}

func (s *GameService) ListGames(ctx context.Context) ([]models.Summary, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	summaries := make([]models.Summary, 0, len(games))
	for i := range games {
		summaries = append(summaries, games[i].Summary())
	}
	return summaries, nil
}

func (s *GameService) GetGame(ctx context.Context, sessionID string) (*GameView, error) {
	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(g)
}

// JoinGame seats username as WHITE or BLACK. OBSERVER or an empty color
// leaves the game untouched. Rejoining one's own seat is allowed; taking the
// second seat is not.
func (s *GameService) JoinGame(ctx context.Context, sessionID, username, color string) (*GameView, error) {
	if username == "" {
		return nil, ErrUnauthorized
	}
	seat := strings.ToUpper(strings.TrimSpace(color))
	if seat != "" && seat != Observer && !game.Color(seat).Valid() {
		return nil, fmt.Errorf("%w: playerColor must be WHITE, BLACK or OBSERVER", ErrBadRequest)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if seat == "" || seat == Observer {
		s.notify(func(o GameObserver) { o.PlayerJoined(g, username, Observer) })
		return s.view(g)
	}

	slot, other := &g.WhiteUsername, g.BlackUsername
	if game.Color(seat) == game.Black {
		slot, other = &g.BlackUsername, g.WhiteUsername
	}
	if *slot != "" && *slot != username {
		return nil, fmt.Errorf("%s seat %w", strings.ToLower(seat), ErrAlreadyTaken)
	}
	if other == username {
		return nil, fmt.Errorf("%w: you already play %s", ErrAlreadyTaken, game.Color(seat).Opponent())
	}
	if *slot != username {
		*slot = username
		g.UpdatedAt = time.Now()
		if err := s.save(ctx, g); err != nil {
			return nil, err
		}
	}

	s.notify(func(o GameObserver) { o.PlayerJoined(g, username, seat) })
	return s.view(g)
}

// LegalMoves lists the legal moves of the piece on from. Finished games have
// none.
func (s *GameService) LegalMoves(ctx context.Context, sessionID, from string) ([]game.Move, error) {
	pos, err := game.ParsePosition(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if g.Status == models.GameStatusComplete {
		return []game.Move{}, nil
	}
	engine, err := game.NewGameFromFEN(g.BoardState)
	if err != nil {
		return nil, fmt.Errorf("corrupt board for game %s: %w", sessionID, err)
	}
	moves := engine.LegalMoves(pos)
	if moves == nil {
		moves = []game.Move{}
	}
	return moves, nil
}

func (s *GameService) History(ctx context.Context, sessionID string) ([]models.Move, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	moves, err := s.store.ListMoves(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moves: %w", err)
	}
	return moves, nil
}

// MakeMove validates and applies a move for a seated player. Concurrent
// calls for the same game are serialized.
func (s *GameService) MakeMove(ctx context.Context, sessionID, username string, m game.Move) (*MoveResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if g.Status == models.GameStatusComplete {
		return nil, ErrGameOver
	}
	seat, ok := g.SeatOf(username)
	if !ok {
		return nil, ErrNotAPlayer
	}

	engine, err := game.NewGameFromFEN(g.BoardState)
	if err != nil {
		return nil, fmt.Errorf("corrupt board for game %s: %w", sessionID, err)
	}
	if engine.TeamTurn() != seat {
		return nil, &game.MoveError{Move: m, Reason: game.ErrWrongSideToMove}
	}

	board := engine.Board()
	moved, _ := board.Piece(m.Start)
	_, capture := board.Piece(m.End)

	if err := engine.ApplyMove(m); err != nil {
		return nil, err
	}

	outcome := engine.Outcome()
	now := time.Now()
	g.BoardState = engine.FEN()
	g.CurrentTurn = engine.TeamTurn()
	g.MoveCount++
	g.UpdatedAt = now

	switch outcome {
	case game.OutcomeCheckmate:
		complete(g, seat, models.WinReasonCheckmate, now)
	case game.OutcomeStalemate:
		complete(g, "", models.WinReasonStalemate, now)
	}

	record := &models.Move{
		SessionID:  sessionID,
		Username:   username,
		MoveNumber: g.MoveCount,
		From:       m.Start.String(),
		To:         m.End.String(),
		Piece:      moved.Type,
		Promotion:  m.Promotion,
		Capture:    capture,
		Check:      outcome == game.OutcomeCheck,
		Checkmate:  outcome == game.OutcomeCheckmate,
		CreatedAt:  now,
	}

	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	if err := s.store.InsertMove(ctx, record); err != nil {
		log.Printf("[GameService] Failed to record move %s in %s: %v", m, sessionID, err)
	}

	s.notify(func(o GameObserver) { o.MoveMade(g, record) })

	return &MoveResult{
		GameView: GameView{Game: g, Board: engine.Board()},
		Move:     record,
		Outcome:  outcome,
	}, nil
}

// Resign ends an active game in the opponent's favour.
func (s *GameService) Resign(ctx context.Context, sessionID, username string) (*models.Game, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	seat, ok := g.SeatOf(username)
	if !ok {
		return nil, ErrNotAPlayer
	}
	if g.Status == models.GameStatusComplete {
		return nil, ErrGameOver
	}

	now := time.Now()
	g.UpdatedAt = now
	complete(g, seat.Opponent(), models.WinReasonResignation, now)
	if err := s.save(ctx, g); err != nil {
		return nil, err
	}

	s.notify(func(o GameObserver) { o.PlayerResigned(g, username) })
	return g, nil
}

// Leave frees the caller's seat. Observers leaving changes nothing.
func (s *GameService) Leave(ctx context.Context, sessionID, username string) (*models.Game, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	g, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if seat, ok := g.SeatOf(username); ok {
		if seat == game.White {
			g.WhiteUsername = ""
		} else {
			g.BlackUsername = ""
		}
		g.UpdatedAt = time.Now()
		if err := s.save(ctx, g); err != nil {
			return nil, err
		}
	}

	s.notify(func(o GameObserver) { o.PlayerLeft(g, username) })
	return g, nil
}

// Clear wipes all stored data.
func (s *GameService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	log.Println("[GameService] Database cleared")
	return nil
}

func (s *GameService) load(ctx context.Context, sessionID string) (*models.Game, error) {
	g, err := s.store.GetGame(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("game %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return g, nil
}

// save writes g back. The per-game lock only covers this process, so a
// write based on a stale read from another instance comes back as ErrConflict.
func (s *GameService) save(ctx context.Context, g *models.Game) error {
	err := s.store.UpdateGame(ctx, g)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrConflict):
		log.Printf("[GameService] Concurrent update rejected for game %s", g.SessionID)
		return ErrConflict
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("game %w", ErrNotFound)
	}
	return fmt.Errorf("failed to update game: %w", err)
}

func (s *GameService) view(g *models.Game) (*GameView, error) {
	board, _, err := game.ParseFEN(g.BoardState)
	if err != nil {
		return nil, fmt.Errorf("corrupt board for game %s: %w", g.SessionID, err)
	}
	return &GameView{Game: g, Board: board}, nil
}

func (s *GameService) notify(fn func(GameObserver)) {
	if s.observer != nil {
		fn(s.observer)
	}
}

func complete(g *models.Game, winner game.Color, reason string, at time.Time) {
	g.Status = models.GameStatusComplete
	g.Winner = winner
	g.WinReason = reason
	g.CompletedAt = &at
}
