package game

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

// boardWith builds a board from square -> FEN letter pairs.
func boardWith(pieces map[string]rune) *Board {
	b := NewBoard()
	for square, letter := range pieces {
		p, err := PieceFromRune(letter)
		if err != nil {
			panic(err)
		}
		b.SetPiece(sq(square), p)
	}
	return b
}

func destinations(moves []Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.End.String())
	}
	sort.Strings(out)
	return out
}

func TestRookRayStopsAtCapture(t *testing.T) {
	b := boardWith(map[string]rune{"a1": 'R', "a3": 'p', "c1": 'N'})

	got := destinations(PseudoLegalMoves(b, sq("a1")))
	assert.Equal(t, []string{"a2", "a3", "b1"}, got)
}

func TestBishopRays(t *testing.T) {
	b := boardWith(map[string]rune{"d4": 'B', "f6": 'P', "b2": 'q'})

	got := destinations(PseudoLegalMoves(b, sq("d4")))
	assert.Equal(t, []string{"a7", "b2", "b6", "c3", "c5", "e3", "e5", "f2", "g1"}, got)
}

func TestQueenCombinesRookAndBishop(t *testing.T) {
	b := boardWith(map[string]rune{"d4": 'Q'})
	assert.Len(t, PseudoLegalMoves(b, sq("d4")), 27)
}

func TestKnightOffsets(t *testing.T) {
	b := boardWith(map[string]rune{"b1": 'N', "d2": 'P', "a3": 'p'})

	got := destinations(PseudoLegalMoves(b, sq("b1")))
	assert.Equal(t, []string{"a3", "c3"}, got)

	center := boardWith(map[string]rune{"e4": 'n'})
	assert.Len(t, PseudoLegalMoves(center, sq("e4")), 8)
}

func TestKingOffsets(t *testing.T) {
	b := boardWith(map[string]rune{"a1": 'K', "a2": 'P', "b2": 'r'})

	got := destinations(PseudoLegalMoves(b, sq("a1")))
	assert.Equal(t, []string{"b1", "b2"}, got)
}

func TestPawnOpeningMoves(t *testing.T) {
	b := NewStartingBoard()

	moves := PseudoLegalMoves(b, sq("e2"))
	assert.ElementsMatch(t, []Move{
		{Start: sq("e2"), End: sq("e3")},
		{Start: sq("e2"), End: sq("e4")},
	}, moves)

	moves = PseudoLegalMoves(b, sq("d7"))
	assert.ElementsMatch(t, []Move{
		{Start: sq("d7"), End: sq("d6")},
		{Start: sq("d7"), End: sq("d5")},
	}, moves)
}

func TestPawnBlocked(t *testing.T) {
	tests := []struct {
		name   string
		pieces map[string]rune
		from   string
		want   []string
	}{
		{"blocked directly", map[string]rune{"e2": 'P', "e3": 'n'}, "e2", []string{}},
		{"double blocked on destination", map[string]rune{"e2": 'P', "e4": 'n'}, "e2", []string{"e3"}},
		{"no double step off start rank", map[string]rune{"e3": 'P'}, "e3", []string{"e4"}},
		{"black double step", map[string]rune{"c7": 'p'}, "c7", []string{"c5", "c6"}},
		{"no forward capture", map[string]rune{"a4": 'P', "a5": 'p'}, "a4", []string{}},
		{"diagonal captures only onto opponents", map[string]rune{"d4": 'P', "c5": 'p', "e5": 'N'}, "d4", []string{"c5", "d5"}},
		{"black captures downward", map[string]rune{"d5": 'p', "e4": 'P', "c4": 'P'}, "d5", []string{"c4", "d4", "e4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := boardWith(tt.pieces)
			assert.Equal(t, tt.want, destinations(PseudoLegalMoves(b, sq(tt.from))))
		})
	}
}

func TestPawnPromotionEmitsFourMoves(t *testing.T) {
	b := boardWith(map[string]rune{"a7": 'P', "b8": 'r'})

	moves := PseudoLegalMoves(b, sq("a7"))
	assert.Len(t, moves, 8)

	byEnd := map[string][]PieceType{}
	for _, m := range moves {
		byEnd[m.End.String()] = append(byEnd[m.End.String()], m.Promotion)
	}
	for _, end := range []string{"a8", "b8"} {
		assert.ElementsMatch(t, PromotionTypes[:], byEnd[end], end)
	}

	black := boardWith(map[string]rune{"h2": 'p'})
	moves = PseudoLegalMoves(black, sq("h2"))
	assert.Len(t, moves, 4)
	for _, m := range moves {
		assert.Equal(t, sq("h1"), m.End)
		assert.NotEmpty(t, m.Promotion)
	}
}

func TestEmptySquareHasNoMoves(t *testing.T) {
	assert.Empty(t, PseudoLegalMoves(NewStartingBoard(), sq("e4")))
}
