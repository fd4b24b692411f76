package game

import (
	"fmt"
	"unicode"
)

// Color identifies a side.
type Color string

const (
	White Color = "WHITE"
	Black Color = "BLACK"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two sides.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// PieceType is the kind of a piece.
type PieceType string

// Piece types
const (
	King   PieceType = "KING"
	Queen  PieceType = "QUEEN"
	Rook   PieceType = "ROOK"
	Bishop PieceType = "BISHOP"
	Knight PieceType = "KNIGHT"
	Pawn   PieceType = "PAWN"
)

// PromotionTypes lists the kinds a pawn may become, in the order moves are
// generated.
var PromotionTypes = [...]PieceType{Queen, Rook, Bishop, Knight}

var pieceLetters = map[PieceType]rune{
	King:   'K',
	Queen:  'Q',
	Rook:   'R',
	Bishop: 'B',
	Knight: 'N',
	Pawn:   'P',
}

// Letter returns the upper-case letter used for t in FEN and move text.
func (t PieceType) Letter() rune {
	return pieceLetters[t]
}

// ParsePieceType accepts either a letter ("q", "N") or a full name ("QUEEN").
func ParsePieceType(s string) (PieceType, error) {
	if len(s) == 1 {
		r := unicode.ToUpper(rune(s[0]))
		for t, letter := range pieceLetters {
			if letter == r {
				return t, nil
			}
		}
		return "", fmt.Errorf("invalid piece type: %q", s)
	}
	t := PieceType(s)
	if _, ok := pieceLetters[t]; !ok {
		return "", fmt.Errorf("invalid piece type: %q", s)
	}
	return t, nil
}

// Piece is an immutable (color, kind) pair. The zero value is not a piece.
type Piece struct {
	Color Color     `json:"teamColor" bson:"teamColor"`
	Type  PieceType `json:"pieceType" bson:"pieceType"`
}

// Rune returns the FEN letter: upper case for White, lower case for Black.
func (p Piece) Rune() rune {
	r := p.Type.Letter()
	if p.Color == Black {
		return unicode.ToLower(r)
	}
	return r
}

func (p Piece) String() string {
	return fmt.Sprintf("%s %s", p.Color, p.Type)
}

// PieceFromRune is the inverse of Piece.Rune.
func PieceFromRune(r rune) (Piece, error) {
	color := White
	if unicode.IsLower(r) {
		color = Black
	}
	upper := unicode.ToUpper(r)
	for t, letter := range pieceLetters {
		if letter == upper {
			return Piece{Color: color, Type: t}, nil
		}
	}
	return Piece{}, fmt.Errorf("invalid piece letter: %q", r)
}
