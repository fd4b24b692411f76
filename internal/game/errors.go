package game

import (
	"errors"
	"fmt"
)

// ErrInvalidMove matches every rejected move.
var ErrInvalidMove = errors.New("invalid move")

// Rejection reasons carried by MoveError.
var (
	ErrNoPieceAtSource    = errors.New("no piece at source square")
	ErrWrongSideToMove    = errors.New("not your turn")
	ErrIllegalDestination = errors.New("illegal destination")
	ErrSelfCheck          = errors.New("move leaves king in check")
)

// MoveError reports why a move was rejected. errors.Is matches both
// ErrInvalidMove and the specific reason.
type MoveError struct {
	Move   Move
	Reason error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("invalid move %s: %v", e.Move, e.Reason)
}

func (e *MoveError) Unwrap() error {
	return e.Reason
}

func (e *MoveError) Is(target error) bool {
	return target == ErrInvalidMove
}

func rejectMove(m Move, reason error) error {
	return &MoveError{Move: m, Reason: reason}
}
