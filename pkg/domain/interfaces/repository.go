package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Session() SessionRepository

	// Close releases any underlying connections
	Close() error
}
