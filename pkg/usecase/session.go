package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/model/config"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

// SessionUseCase implements the session lifecycle: creation, lookup, metadata
// patching, fact merging, message appends, and deletion. Every mutation is a
// read-modify-write over the full record and bumps the update timestamp.
type SessionUseCase struct {
	repo  interfaces.Repository
	cfg   *config.IntakeConfig
	nowFn func() time.Time
}

// CreateSessionInput carries the optional seed values for a new session
type CreateSessionInput struct {
	Jurisdiction string
	Track        string
	SeedFacts    map[string]any
}

// PatchSessionInput carries a partial update. Nil pointer fields are left
// untouched; FactsPatch is deep-merged into the fact record.
type PatchSessionInput struct {
	Jurisdiction *string
	Track        *string
	FactsPatch   map[string]any
}

// Create starts a new intake session with an empty conversation. Missing
// jurisdiction/track fall back to the configured defaults; unknown track
// values normalize to the generic track.
func (uc *SessionUseCase) Create(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	now := uc.nowFn().UTC()

	jurisdiction := strings.TrimSpace(input.Jurisdiction)
	if jurisdiction == "" {
		jurisdiction = uc.cfg.DefaultJurisdiction
	}

	track := uc.cfg.DefaultTrack
	if t := strings.TrimSpace(input.Track); t != "" {
		track = types.Track(t).Normalize()
	}

	s := model.NewSession(jurisdiction, track, now)

	if len(input.SeedFacts) > 0 {
		merged, err := s.Facts.Merge(input.SeedFacts)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidInput, "seed facts are not a valid fact object", goerr.V("cause", err.Error()))
		}
		s.Facts = merged
		s.PromoteCanonicalFacts()
	}

	if err := uc.repo.Session().Create(ctx, s); err != nil {
		return nil, goerr.Wrap(err, "failed to persist new session")
	}
	return s, nil
}

// Get fetches a session by ID
func (uc *SessionUseCase) Get(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if strings.TrimSpace(id.String()) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "session ID is required")
	}
	return uc.repo.Session().Get(ctx, id)
}

// List returns all sessions, newest update first
func (uc *SessionUseCase) List(ctx context.Context) ([]*model.Session, error) {
	return uc.repo.Session().List(ctx)
}

// Patch applies a metadata patch and/or a fact patch to a session
func (uc *SessionUseCase) Patch(ctx context.Context, id types.SessionID, input PatchSessionInput) (*model.Session, error) {
	s, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Jurisdiction != nil {
		jurisdiction := strings.TrimSpace(*input.Jurisdiction)
		s.Jurisdiction = jurisdiction
		s.Facts.Jurisdiction = jurisdiction
	}
	if input.Track != nil {
		track := types.Track(strings.TrimSpace(*input.Track)).Normalize()
		s.Track = track
		s.Facts.Track = track.String()
	}

	if len(input.FactsPatch) > 0 {
		merged, err := s.Facts.Merge(input.FactsPatch)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidInput, "facts patch is not a valid fact object", goerr.V("cause", err.Error()))
		}
		s.Facts = merged
		s.PromoteCanonicalFacts()
	}

	s.Touch(uc.nowFn().UTC())
	if err := uc.repo.Session().Update(ctx, s); err != nil {
		return nil, goerr.Wrap(err, "failed to persist session patch")
	}
	return s, nil
}

// MergeFacts deep-merges a fact patch into the session and returns the result
func (uc *SessionUseCase) MergeFacts(ctx context.Context, id types.SessionID, patch map[string]any) (model.Facts, error) {
	s, err := uc.Patch(ctx, id, PatchSessionInput{FactsPatch: patch})
	if err != nil {
		return model.Facts{}, err
	}
	return s.Facts, nil
}

// AppendMessage appends one message to the session's conversation
func (uc *SessionUseCase) AppendMessage(ctx context.Context, id types.SessionID, role types.Role, content string) (*model.Message, error) {
	if !role.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid message role", goerr.V("role", role))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "message content is required")
	}

	s, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.nowFn().UTC()
	msg := model.NewMessage(role, content, now)
	s.Append(msg)
	s.Touch(now)

	if err := uc.repo.Session().Update(ctx, s); err != nil {
		return nil, goerr.Wrap(err, "failed to persist message append")
	}
	return msg, nil
}

// Messages returns the session's conversation in append order
func (uc *SessionUseCase) Messages(ctx context.Context, id types.SessionID) ([]*model.Message, error) {
	s, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Messages, nil
}

// Delete removes a session permanently. Unknown IDs fail with NotFound; a
// deleted session can never be fetched again as an empty record.
func (uc *SessionUseCase) Delete(ctx context.Context, id types.SessionID) error {
	if strings.TrimSpace(id.String()) == "" {
		return goerr.Wrap(ErrInvalidInput, "session ID is required")
	}
	return uc.repo.Session().Delete(ctx, id)
}
