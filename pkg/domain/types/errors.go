package types

import "errors"

// Errors shared between the repository and usecase layers
var (
	// ErrSessionNotFound is returned when a session ID does not resolve to a
	// stored record. Lookups never succeed silently with an empty record.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session whose ID is taken
	ErrSessionExists = errors.New("session already exists")
)
