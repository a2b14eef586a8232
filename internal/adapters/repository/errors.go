package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrUnavailable   = errors.New("ledger unavailable")
	ErrBadDirection  = errors.New("invalid direction")
	ErrInvalidEntity = errors.New("invalid entity")
)
