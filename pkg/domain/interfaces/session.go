package interfaces

import (
	"context"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

// SessionRepository defines the interface for Session data access.
//
// Update is a whole-record write: callers load a session, mutate it, and put
// the full record back. Two concurrent writers to the same session therefore
// race and the later write wins. That is the accepted intake-MVP semantics;
// a deployment needing stronger guarantees should serialize writes per
// session ID in front of this interface.
type SessionRepository interface {
	// Create stores a new session. Fails with types.ErrSessionExists if the
	// ID is already taken.
	Create(ctx context.Context, s *model.Session) error

	// Get retrieves a session by ID. Fails with types.ErrSessionNotFound for
	// unknown IDs.
	Get(ctx context.Context, id types.SessionID) (*model.Session, error)

	// Update overwrites the stored record. Fails with types.ErrSessionNotFound
	// for unknown IDs.
	Update(ctx context.Context, s *model.Session) error

	// Delete removes a session. Fails with types.ErrSessionNotFound for
	// unknown IDs.
	Delete(ctx context.Context, id types.SessionID) error

	// List retrieves all sessions ordered by last update, newest first
	List(ctx context.Context) ([]*model.Session, error)
}
