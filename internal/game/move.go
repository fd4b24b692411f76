package game

import (
	"fmt"
	"unicode"
)

// Move is a request to move the piece on Start to End. Promotion is set
// only when a pawn reaches its last rank.
type Move struct {
	Start     Position  `json:"startPosition" bson:"startPosition"`
	End       Position  `json:"endPosition" bson:"endPosition"`
	Promotion PieceType `json:"promotionPiece,omitempty" bson:"promotionPiece,omitempty"`
}

// ParseMove reads coordinate notation such as "e2e4" or "e7e8q".
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid move: %q", s)
	}
	start, err := ParsePosition(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	end, err := ParsePosition(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	m := Move{Start: start, End: end}
	if len(s) == 5 {
		promo, err := ParsePieceType(s[4:])
		if err != nil {
			return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
		}
		m.Promotion = promo
	}
	return m, nil
}

// String renders the move in coordinate notation.
func (m Move) String() string {
	s := m.Start.String() + m.End.String()
	if m.Promotion != "" {
		s += string(unicode.ToLower(m.Promotion.Letter()))
	}
	return s
}
