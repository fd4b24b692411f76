package game

import "fmt"

// Snapshot is the wire form of a game: the full grid and the side to move.
type Snapshot struct {
	Board *Board `json:"board"`
	Turn  Color  `json:"teamTurn"`
}

// Snapshot captures the current state. The board is a copy.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{Board: g.board.Clone(), Turn: g.turn}
}

// RestoreGame rebuilds a game from a snapshot.
func RestoreGame(s Snapshot) (*Game, error) {
	if s.Board == nil {
		return nil, fmt.Errorf("restore game: missing board")
	}
	if !s.Turn.Valid() {
		return nil, fmt.Errorf("restore game: invalid side to move %q", s.Turn)
	}
	return NewGameFromBoard(s.Board, s.Turn), nil
}
