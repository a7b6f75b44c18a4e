package model

import (
	"time"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Message is one entry in a session's append-only conversation
type Message struct {
	ID        types.MessageID `json:"id"`
	Role      types.Role      `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewMessage creates a conversation message with a fresh ID
func NewMessage(role types.Role, content string, now time.Time) *Message {
	return &Message{
		ID:        types.NewMessageID(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// OutputsCache holds the most recently generated presentation packet.
// It is invalidated only by explicit regeneration.
type OutputsCache struct {
	GeneratedAt time.Time `json:"generated_at"`
	Packet      *Packet   `json:"packet"`
}

// Session is the unit of persisted state for one litigant's intake
type Session struct {
	ID        types.SessionID `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Jurisdiction string      `json:"jurisdiction"`
	Track        types.Track `json:"track"`

	Facts    Facts      `json:"facts"`
	Messages []*Message `json:"messages"`

	Outputs *OutputsCache `json:"outputs,omitempty"`
}

// NewSession creates a session with an empty conversation. The facts are
// seeded with the canonical jurisdiction/track so fact-only consumers see them.
func NewSession(jurisdiction string, track types.Track, now time.Time) *Session {
	track = track.Normalize()
	return &Session{
		ID:           types.NewSessionID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Jurisdiction: jurisdiction,
		Track:        track,
		Facts: Facts{
			Jurisdiction: jurisdiction,
			Track:        track.String(),
		},
	}
}

// Validate checks the session's structural invariants
func (s *Session) Validate() error {
	if err := s.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session ID")
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return goerr.New("updatedAt must not precede createdAt",
			goerr.V("created_at", s.CreatedAt),
			goerr.V("updated_at", s.UpdatedAt),
		)
	}
	for _, msg := range s.Messages {
		if !msg.Role.IsValid() {
			return goerr.New("invalid message role",
				goerr.V("message_id", msg.ID),
				goerr.V("role", msg.Role),
			)
		}
	}
	return nil
}

// Touch bumps the last-update timestamp, never moving it backwards
func (s *Session) Touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// Append adds a message to the conversation. The conversation is append-only;
// nothing else in the codebase may reorder or remove entries.
func (s *Session) Append(msg *Message) {
	s.Messages = append(s.Messages, msg)
}

// RecentMessages returns up to n of the newest messages in conversation order
func (s *Session) RecentMessages(n int) []*Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// LastUserText returns the content of the most recent user message, or ""
func (s *Session) LastUserText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == types.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// PromoteCanonicalFacts lifts jurisdiction/track values found in the fact
// record up to the session's classification fields.
func (s *Session) PromoteCanonicalFacts() {
	if s.Facts.Jurisdiction != "" {
		s.Jurisdiction = s.Facts.Jurisdiction
	}
	if s.Facts.Track != "" {
		s.Track = types.Track(s.Facts.Track).Normalize()
	}
}

// Clone returns a deep copy so repository callers cannot mutate stored state
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Facts = s.Facts.Clone()

	out.Messages = make([]*Message, len(s.Messages))
	for i, msg := range s.Messages {
		copied := *msg
		out.Messages[i] = &copied
	}

	if s.Outputs != nil {
		cache := *s.Outputs
		if s.Outputs.Packet != nil {
			cache.Packet = s.Outputs.Packet.Clone()
		}
		out.Outputs = &cache
	}
	return &out
}
