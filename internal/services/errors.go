package services

import "errors"

// Service errors. Handlers map these onto HTTP status codes.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAlreadyTaken = errors.New("already taken")
	ErrNotFound     = errors.New("not found")
	ErrGameOver     = errors.New("game is over")
	ErrNotAPlayer   = errors.New("not a player in this game")
	ErrConflict     = errors.New("game was updated by another request, reload and retry")
)
