package usecase

import "errors"

// Sentinel errors for the use case layer.
//
// ErrInvalidInput and types.ErrSessionNotFound surface to callers.
// ErrGenerationFailed never does: every generation failure is recovered
// locally by the deterministic fallback, so it only shows up in logs.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrGenerationFailed = errors.New("generation failed")
)
