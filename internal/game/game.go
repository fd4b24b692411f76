package game

// Outcome describes the position from the side to move's point of view.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeCheck      Outcome = "check"
	OutcomeCheckmate  Outcome = "checkmate"
	OutcomeStalemate  Outcome = "stalemate"
)

// Game holds a board and the side to move. It is not safe for concurrent
// use; callers serialize access per game.
type Game struct {
	board *Board
	turn  Color
}

// NewGame returns a game in the starting position with White to move.
func NewGame() *Game {
	return &Game{board: NewStartingBoard(), turn: White}
}

// NewGameFromBoard restores a game from a saved board and side to move. The
// board is copied.
func NewGameFromBoard(b *Board, turn Color) *Game {
	if !turn.Valid() {
		turn = White
	}
	return &Game{board: b.Clone(), turn: turn}
}

// Board returns a copy of the current board.
func (g *Game) Board() *Board {
	return g.board.Clone()
}

// TeamTurn returns the side to move.
func (g *Game) TeamTurn() Color {
	return g.turn
}

// LegalMoves returns the moves of the piece on pos that do not leave its own
// king attacked. It is empty when pos holds no piece.
func (g *Game) LegalMoves(pos Position) []Move {
	var legal []Move
	for _, m := range PseudoLegalMoves(g.board, pos) {
		if g.leavesKingSafe(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsLegal reports whether m is a pseudo-legal move of the piece on its start
// square that keeps that piece's king safe. The side to move is not
// considered.
func (g *Game) IsLegal(m Move) bool {
	return g.checkMove(m) == nil
}

// checkMove validates m without regard to whose turn it is.
func (g *Game) checkMove(m Move) error {
	if _, ok := g.board.Piece(m.Start); !ok {
		return rejectMove(m, ErrNoPieceAtSource)
	}
	if !containsMove(PseudoLegalMoves(g.board, m.Start), m) {
		return rejectMove(m, ErrIllegalDestination)
	}
	if !g.leavesKingSafe(m) {
		return rejectMove(m, ErrSelfCheck)
	}
	return nil
}

// ApplyMove validates and commits m for the side to move, then passes the
// turn. A rejected move leaves the game unchanged and returns a *MoveError.
func (g *Game) ApplyMove(m Move) error {
	piece, ok := g.board.Piece(m.Start)
	if !ok {
		return rejectMove(m, ErrNoPieceAtSource)
	}
	if piece.Color != g.turn {
		return rejectMove(m, ErrWrongSideToMove)
	}
	if err := g.checkMove(m); err != nil {
		return err
	}

	u := g.play(m)
	if g.IsInCheck(piece.Color) {
		u.revert(g.board)
		return rejectMove(m, ErrSelfCheck)
	}
	g.turn = g.turn.Opponent()
	return nil
}

// IsInCheck reports whether the king of color c is attacked. A board with no
// king of that color is never in check.
func (g *Game) IsInCheck(c Color) bool {
	king, ok := g.board.find(Piece{Color: c, Type: King})
	if !ok {
		return false
	}
	return g.isAttacked(king, c.Opponent())
}

// IsInCheckmate reports whether c is in check with no legal move.
func (g *Game) IsInCheckmate(c Color) bool {
	return g.IsInCheck(c) && !g.hasLegalMoves(c)
}

// IsInStalemate reports whether c is not in check and has no legal move.
func (g *Game) IsInStalemate(c Color) bool {
	return !g.IsInCheck(c) && !g.hasLegalMoves(c)
}

// Outcome evaluates the position for the side to move.
func (g *Game) Outcome() Outcome {
	inCheck := g.IsInCheck(g.turn)
	hasMoves := g.hasLegalMoves(g.turn)
	switch {
	case inCheck && !hasMoves:
		return OutcomeCheckmate
	case !hasMoves:
		return OutcomeStalemate
	case inCheck:
		return OutcomeCheck
	}
	return OutcomeInProgress
}

// AllLegalMoves returns every legal move of color c.
func (g *Game) AllLegalMoves(c Color) []Move {
	var moves []Move
	for _, pos := range g.board.squaresOf(c) {
		moves = append(moves, g.LegalMoves(pos)...)
	}
	return moves
}

func (g *Game) hasLegalMoves(c Color) bool {
	for _, pos := range g.board.squaresOf(c) {
		if len(g.LegalMoves(pos)) > 0 {
			return true
		}
	}
	return false
}

// isAttacked reports whether any piece of color by has a pseudo-legal move
// ending on target.
func (g *Game) isAttacked(target Position, by Color) bool {
	for _, from := range g.board.squaresOf(by) {
		for _, m := range PseudoLegalMoves(g.board, from) {
			if m.End == target {
				return true
			}
		}
	}
	return false
}

// leavesKingSafe simulates m and rolls it back before returning.
func (g *Game) leavesKingSafe(m Move) bool {
	piece, ok := g.board.Piece(m.Start)
	if !ok {
		return false
	}
	u := g.play(m)
	safe := !g.IsInCheck(piece.Color)
	u.revert(g.board)
	return safe
}

// undo records what play changed so it can be put back exactly.
type undo struct {
	move     Move
	moved    Piece
	captured Piece
}

// play moves the piece on m.Start to m.End, capturing and promoting as
// needed. No validation is done.
func (g *Game) play(m Move) undo {
	moved, _ := g.board.Piece(m.Start)
	captured, _ := g.board.Piece(m.End)
	u := undo{move: m, moved: moved, captured: captured}

	placed := moved
	if m.Promotion != "" {
		placed = Piece{Color: moved.Color, Type: m.Promotion}
	}
	g.board.SetPiece(m.End, placed)
	g.board.Clear(m.Start)
	return u
}

func (u undo) revert(b *Board) {
	b.SetPiece(u.move.Start, u.moved)
	b.SetPiece(u.move.End, u.captured)
}

func containsMove(moves []Move, m Move) bool {
	for _, candidate := range moves {
		if candidate == m {
			return true
		}
	}
	return false
}
