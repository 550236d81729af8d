package game

import (
	"errors"
)

var (
	ErrInvalidValue     = errors.New("invalid value (0-9)")
	ErrIndexOutOfRange  = errors.New("index out of bounds")
	ErrCapacityExceeded = errors.New("array is full")
	ErrEmptySequence    = errors.New("array is empty")
	ErrInvalidPattern   = errors.New("enter a valid pattern (e.g., 1,2,3)")
	ErrSearchInProgress = errors.New("a search is already running")
	ErrGameOver         = errors.New("game over, reset to play again")
	ErrSearchStale      = errors.New("search superseded by a newer game")
	ErrSessionNotFound  = errors.New("session not found")
)

// Code maps an intent error onto a stable identifier for API clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrEmptySequence):
		return "empty_sequence"
	case errors.Is(err, ErrInvalidPattern):
		return "invalid_pattern"
	case errors.Is(err, ErrSearchInProgress):
		return "search_in_progress"
	case errors.Is(err, ErrGameOver):
		return "game_over"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	default:
		return "internal"
	}
}

// IsValidation reports whether err is a local validation failure of an intent.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrEmptySequence) ||
		errors.Is(err, ErrInvalidPattern)
}
