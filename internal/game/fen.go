package game

import (
	"fmt"
	"strings"
	"unicode"
)

// InitialFEN is the starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"

// ParseFEN parses a FEN string into a board and side to move. Only the
// placement and active color fields are used; castling, en passant and the
// clocks are accepted and ignored.
func ParseFEN(fen string) (*Board, Color, error) {
	parts := strings.Fields(fen)
	if len(parts) < 2 || len(parts) > 6 {
		return nil, "", fmt.Errorf("invalid FEN: expected 2 to 6 fields, got %d", len(parts))
	}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, "", fmt.Errorf("invalid FEN: expected 8 ranks, got %d", len(ranks))
	}

	board := NewBoard()
	for i, row := range ranks {
		rank := 8 - i
		file := 1
		for _, c := range row {
			if unicode.IsDigit(c) {
				file += int(c - '0')
				continue
			}
			if file > 8 {
				return nil, "", fmt.Errorf("invalid FEN: rank %d overflows", rank)
			}
			piece, err := PieceFromRune(c)
			if err != nil {
				return nil, "", fmt.Errorf("invalid FEN: %w", err)
			}
			board.SetPiece(Position{Rank: rank, File: file}, piece)
			file++
		}
		if file != 9 {
			return nil, "", fmt.Errorf("invalid FEN: rank %d has %d squares", rank, file-1)
		}
	}

	var turn Color
	switch parts[1] {
	case "w":
		turn = White
	case "b":
		turn = Black
	default:
		return nil, "", fmt.Errorf("invalid FEN: active color %q", parts[1])
	}

	return board, turn, nil
}

// FEN renders the board with turn as the active color. Castling and en
// passant are never available, so those fields are always "-".
func (b *Board) FEN(turn Color) string {
	var sb strings.Builder

	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			piece := b.squares[r][f]
			if piece == (Piece{}) {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteRune(rune('0' + empty))
				empty = 0
			}
			sb.WriteRune(piece.Rune())
		}
		if empty > 0 {
			sb.WriteRune(rune('0' + empty))
		}
		if r > 0 {
			sb.WriteRune('/')
		}
	}

	if turn == Black {
		sb.WriteString(" b")
	} else {
		sb.WriteString(" w")
	}
	sb.WriteString(" - - 0 1")
	return sb.String()
}

// FEN renders the game's current position.
func (g *Game) FEN() string {
	return g.board.FEN(g.turn)
}

// NewGameFromFEN restores a game from its FEN text.
func NewGameFromFEN(fen string) (*Game, error) {
	board, turn, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{board: board, turn: turn}, nil
}
