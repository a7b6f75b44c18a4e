package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*model.Session
}

var _ interfaces.SessionRepository = &sessionRepository{}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		sessions: make(map[types.SessionID]*model.Session),
	}
}

func (r *sessionRepository) Create(_ context.Context, s *model.Session) error {
	if err := s.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return goerr.Wrap(types.ErrSessionExists, "cannot create session", goerr.V("id", s.ID))
	}

	// Store a copy to avoid external mutation
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *sessionRepository) Get(_ context.Context, id types.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrSessionNotFound, "cannot get session", goerr.V("id", id))
	}
	return s.Clone(), nil
}

func (r *sessionRepository) Update(_ context.Context, s *model.Session) error {
	if err := s.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return goerr.Wrap(types.ErrSessionNotFound, "cannot update session", goerr.V("id", s.ID))
	}

	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *sessionRepository) Delete(_ context.Context, id types.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return goerr.Wrap(types.ErrSessionNotFound, "cannot delete session", goerr.V("id", id))
	}

	delete(r.sessions, id)
	return nil
}

func (r *sessionRepository) List(_ context.Context) ([]*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}

	// Newest update first; creation time breaks ties for stable ordering
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}
