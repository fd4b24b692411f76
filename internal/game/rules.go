package game

// direction is a (rank, file) step.
type direction struct {
	dRank, dFile int
}

var (
	orthogonal = []direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = []direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allLines   = append(append([]direction{}, orthogonal...), diagonal...)

	kingOffsets   = allLines
	knightOffsets = []direction{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
)

// PseudoLegalMoves returns every move the piece on from can make according to
// its movement pattern and the board occupancy. King safety is ignored. An
// empty square yields no moves.
func PseudoLegalMoves(b *Board, from Position) []Move {
	piece, ok := b.Piece(from)
	if !ok {
		return nil
	}

	switch piece.Type {
	case King:
		return offsetMoves(b, from, kingOffsets)
	case Queen:
		return rayMoves(b, from, allLines)
	case Rook:
		return rayMoves(b, from, orthogonal)
	case Bishop:
		return rayMoves(b, from, diagonal)
	case Knight:
		return offsetMoves(b, from, knightOffsets)
	case Pawn:
		return pawnMoves(b, from, piece.Color)
	}
	return nil
}

// rayMoves slides along each direction until the edge, stopping before an own
// piece and on an opponent piece.
func rayMoves(b *Board, from Position, dirs []direction) []Move {
	var moves []Move
	for _, d := range dirs {
		pos := from
		for {
			next, ok := pos.Offset(d.dRank, d.dFile)
			if !ok || b.IsOccupiedByOwnPiece(next, from) {
				break
			}
			moves = append(moves, Move{Start: from, End: next})
			if b.IsOccupiedByOpponent(next, from) {
				break
			}
			pos = next
		}
	}
	return moves
}

// offsetMoves tries each fixed jump once.
func offsetMoves(b *Board, from Position, offsets []direction) []Move {
	var moves []Move
	for _, d := range offsets {
		to, ok := from.Offset(d.dRank, d.dFile)
		if !ok || b.IsOccupiedByOwnPiece(to, from) {
			continue
		}
		moves = append(moves, Move{Start: from, End: to})
	}
	return moves
}

// pawnGeometry returns the forward step, start rank and promotion rank for c.
func pawnGeometry(c Color) (dir, startRank, promotionRank int) {
	if c == White {
		return 1, 2, 8
	}
	return -1, 7, 1
}

func pawnMoves(b *Board, from Position, c Color) []Move {
	dir, startRank, promotionRank := pawnGeometry(c)
	var moves []Move

	add := func(to Position) {
		if to.Rank == promotionRank {
			for _, t := range PromotionTypes {
				moves = append(moves, Move{Start: from, End: to, Promotion: t})
			}
			return
		}
		moves = append(moves, Move{Start: from, End: to})
	}

	if one, ok := from.Offset(dir, 0); ok && b.IsEmpty(one) {
		add(one)
		if from.Rank == startRank {
			if two, ok := from.Offset(2*dir, 0); ok && b.IsEmpty(two) {
				add(two)
			}
		}
	}

	for _, df := range [...]int{-1, 1} {
		if to, ok := from.Offset(dir, df); ok && b.IsOccupiedByOpponent(to, from) {
			add(to)
		}
	}
	return moves
}
