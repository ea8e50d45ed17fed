package sentinel

import "errors"

// Sentinel dependency errors. Dependencies (stores, the wallet provider
// client) should return these (optionally wrapped) so services can
// translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)
