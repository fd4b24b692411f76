package game

import "fmt"

// Position is a square on the board. Rank and File both run from 1 to 8;
// file 1 is the a-file and rank 1 is White's back rank.
type Position struct {
	Rank int `json:"row" bson:"row"`
	File int `json:"col" bson:"col"`
}

// NewPosition returns the square at (rank, file) or an error when either
// coordinate is outside 1..8.
func NewPosition(rank, file int) (Position, error) {
	if !onBoard(rank, file) {
		return Position{}, fmt.Errorf("invalid position: rank %d file %d", rank, file)
	}
	return Position{Rank: rank, File: file}, nil
}

// ParsePosition converts algebraic notation (e.g., "e4") to Position
func ParsePosition(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid position: %q", s)
	}
	file := int(s[0]-'a') + 1
	rank := int(s[1]-'1') + 1
	if !onBoard(rank, file) {
		return Position{}, fmt.Errorf("invalid position: %q", s)
	}
	return Position{Rank: rank, File: file}, nil
}

// String converts Position to algebraic notation
func (p Position) String() string {
	return fmt.Sprintf("%c%c", 'a'+p.File-1, '1'+p.Rank-1)
}

// Valid reports whether both coordinates are on the board.
func (p Position) Valid() bool {
	return onBoard(p.Rank, p.File)
}

// Offset steps from p by the given deltas. The second result is false when
// the target falls off the board.
func (p Position) Offset(dRank, dFile int) (Position, bool) {
	rank, file := p.Rank+dRank, p.File+dFile
	if !onBoard(rank, file) {
		return Position{}, false
	}
	return Position{Rank: rank, File: file}, true
}

func onBoard(rank, file int) bool {
	return rank >= 1 && rank <= 8 && file >= 1 && file <= 8
}
