package game

import (
	"encoding/json"
	"fmt"
)

// Board represents a chess board state. Squares are indexed [rank-1][file-1];
// the zero Piece marks an empty square.
type Board struct {
	squares [8][8]Piece
}

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// NewStartingBoard returns a board holding the standard opening array.
func NewStartingBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset clears the board and places the 32 pieces of the opening position.
func (b *Board) Reset() {
	b.squares = [8][8]Piece{}
	for f := 0; f < 8; f++ {
		b.squares[0][f] = Piece{Color: White, Type: backRank[f]}
		b.squares[1][f] = Piece{Color: White, Type: Pawn}
		b.squares[6][f] = Piece{Color: Black, Type: Pawn}
		b.squares[7][f] = Piece{Color: Black, Type: backRank[f]}
	}
}

// Piece returns the piece at pos. The second result is false when the square
// is empty or pos is off the board.
func (b *Board) Piece(pos Position) (Piece, bool) {
	if !pos.Valid() {
		return Piece{}, false
	}
	p := b.squares[pos.Rank-1][pos.File-1]
	return p, p != Piece{}
}

// SetPiece places p on pos without any legality checking. Passing the zero
// Piece empties the square.
func (b *Board) SetPiece(pos Position, p Piece) {
	b.squares[pos.Rank-1][pos.File-1] = p
}

// Clear empties pos.
func (b *Board) Clear(pos Position) {
	b.SetPiece(pos, Piece{})
}

// IsEmpty reports whether pos is on the board and holds no piece.
func (b *Board) IsEmpty(pos Position) bool {
	if !pos.Valid() {
		return false
	}
	_, ok := b.Piece(pos)
	return !ok
}

// IsOccupiedByOwnPiece reports whether pos holds a piece of the same color as
// the piece on from. It is false when either square is empty or off board.
func (b *Board) IsOccupiedByOwnPiece(pos, from Position) bool {
	mover, ok := b.Piece(from)
	if !ok {
		return false
	}
	target, ok := b.Piece(pos)
	return ok && target.Color == mover.Color
}

// IsOccupiedByOpponent reports whether pos holds a piece of the other color
// from the piece on from.
func (b *Board) IsOccupiedByOpponent(pos, from Position) bool {
	mover, ok := b.Piece(from)
	if !ok {
		return false
	}
	target, ok := b.Piece(pos)
	return ok && target.Color != mover.Color
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// Equal reports whether both boards hold the same pieces on the same squares.
func (b *Board) Equal(other *Board) bool {
	return other != nil && b.squares == other.squares
}

// find returns the first square holding p, scanning from a1.
func (b *Board) find(p Piece) (Position, bool) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b.squares[r][f] == p {
				return Position{Rank: r + 1, File: f + 1}, true
			}
		}
	}
	return Position{}, false
}

// squaresOf returns every square holding a piece of color c.
func (b *Board) squaresOf(c Color) []Position {
	var out []Position
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b.squares[r][f].Color == c {
				out = append(out, Position{Rank: r + 1, File: f + 1})
			}
		}
	}
	return out
}

// MarshalJSON encodes the board as 8 ranks of 8 squares, rank 1 first, with
// null for empty squares.
func (b *Board) MarshalJSON() ([]byte, error) {
	var grid [8][8]*Piece
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := b.squares[r][f]; p != (Piece{}) {
				grid[r][f] = &p
			}
		}
	}
	return json.Marshal(grid)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *Board) UnmarshalJSON(data []byte) error {
	var grid [8][8]*Piece
	if err := json.Unmarshal(data, &grid); err != nil {
		return fmt.Errorf("decode board: %w", err)
	}
	var squares [8][8]Piece
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p := grid[r][f]
			if p == nil {
				continue
			}
			if !p.Color.Valid() || p.Type.Letter() == 0 {
				return fmt.Errorf("decode board: invalid piece %q on %s", p.String(), Position{Rank: r + 1, File: f + 1})
			}
			squares[r][f] = *p
		}
	}
	b.squares = squares
	return nil
}
