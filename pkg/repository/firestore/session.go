package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

type sessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SessionRepository = &sessionRepository{}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{client: client}
}

func (r *sessionRepository) sessionsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_sessions"
	}
	return "sessions"
}

type messageDoc struct {
	ID        string    `firestore:"id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

type timelineEntryDoc struct {
	Date  string `firestore:"date"`
	Event string `firestore:"event"`
}

type reviewerPacketDoc struct {
	Jurisdiction string   `firestore:"jurisdiction"`
	Track        string   `firestore:"track"`
	GoalRelief   string   `firestore:"goal_relief"`
	KeyFacts     []string `firestore:"key_facts"`
	KeyRequests  []string `firestore:"key_requests"`
}

type packetDoc struct {
	OralScript2Min    string             `firestore:"oral_script_2min"`
	OralOutline5Min   string             `firestore:"oral_outline_5min"`
	Timeline          []timelineEntryDoc `firestore:"timeline"`
	EvidenceChecklist []string           `firestore:"evidence_checklist"`
	Gaps              []string           `firestore:"gaps"`
	ReviewerPacket    reviewerPacketDoc  `firestore:"reviewer_packet"`
	SafetyFlags       []string           `firestore:"safety_flags"`
}

type outputsDoc struct {
	GeneratedAt time.Time `firestore:"generated_at"`
	Packet      packetDoc `firestore:"packet"`
}

type sessionDoc struct {
	ID           string         `firestore:"id"`
	CreatedAt    time.Time      `firestore:"created_at"`
	UpdatedAt    time.Time      `firestore:"updated_at"`
	Jurisdiction string         `firestore:"jurisdiction"`
	Track        string         `firestore:"track"`
	Facts        map[string]any `firestore:"facts"`
	Messages     []messageDoc   `firestore:"messages"`
	Outputs      *outputsDoc    `firestore:"outputs"`
}

func toSessionDoc(s *model.Session) (*sessionDoc, error) {
	facts, err := s.Facts.ToMap()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode session facts", goerr.V("id", s.ID))
	}

	doc := &sessionDoc{
		ID:           s.ID.String(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Jurisdiction: s.Jurisdiction,
		Track:        s.Track.String(),
		Facts:        facts,
	}

	for _, msg := range s.Messages {
		doc.Messages = append(doc.Messages, messageDoc{
			ID:        msg.ID.String(),
			Role:      msg.Role.String(),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	if s.Outputs != nil && s.Outputs.Packet != nil {
		doc.Outputs = &outputsDoc{
			GeneratedAt: s.Outputs.GeneratedAt,
			Packet:      toPacketDoc(s.Outputs.Packet),
		}
	}

	return doc, nil
}

func toPacketDoc(p *model.Packet) packetDoc {
	doc := packetDoc{
		OralScript2Min:    p.OralScript2Min,
		OralOutline5Min:   p.OralOutline5Min,
		EvidenceChecklist: p.EvidenceChecklist,
		Gaps:              p.Gaps,
		SafetyFlags:       p.SafetyFlags,
		ReviewerPacket: reviewerPacketDoc{
			Jurisdiction: p.ReviewerPacket.Jurisdiction,
			Track:        p.ReviewerPacket.Track,
			GoalRelief:   p.ReviewerPacket.GoalRelief,
			KeyFacts:     p.ReviewerPacket.KeyFacts,
			KeyRequests:  p.ReviewerPacket.KeyRequests,
		},
	}
	for _, entry := range p.Timeline {
		doc.Timeline = append(doc.Timeline, timelineEntryDoc(entry))
	}
	return doc
}

func fromSessionDoc(doc *sessionDoc) (*model.Session, error) {
	facts, err := model.FactsFromMap(doc.Facts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode session facts", goerr.V("id", doc.ID))
	}

	s := &model.Session{
		ID:           types.SessionID(doc.ID),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		Jurisdiction: doc.Jurisdiction,
		Track:        types.Track(doc.Track),
		Facts:        facts,
	}

	for _, msg := range doc.Messages {
		s.Messages = append(s.Messages, &model.Message{
			ID:        types.MessageID(msg.ID),
			Role:      types.Role(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	if doc.Outputs != nil {
		s.Outputs = &model.OutputsCache{
			GeneratedAt: doc.Outputs.GeneratedAt,
			Packet:      fromPacketDoc(doc.Outputs.Packet),
		}
	}

	return s, nil
}

func fromPacketDoc(doc packetDoc) *model.Packet {
	p := &model.Packet{
		OralScript2Min:    doc.OralScript2Min,
		OralOutline5Min:   doc.OralOutline5Min,
		EvidenceChecklist: doc.EvidenceChecklist,
		Gaps:              doc.Gaps,
		SafetyFlags:       doc.SafetyFlags,
		ReviewerPacket: model.ReviewerPacket{
			Jurisdiction: doc.ReviewerPacket.Jurisdiction,
			Track:        doc.ReviewerPacket.Track,
			GoalRelief:   doc.ReviewerPacket.GoalRelief,
			KeyFacts:     doc.ReviewerPacket.KeyFacts,
			KeyRequests:  doc.ReviewerPacket.KeyRequests,
		},
	}
	for _, entry := range doc.Timeline {
		p.Timeline = append(p.Timeline, model.TimelineEntry(entry))
	}
	return p
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	if err := s.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	doc, err := toSessionDoc(s)
	if err != nil {
		return err
	}

	ref := r.client.Collection(r.sessionsCollection()).Doc(doc.ID)
	if _, err := ref.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(types.ErrSessionExists, "cannot create session", goerr.V("id", s.ID))
		}
		return goerr.Wrap(err, "failed to create session", goerr.V("id", s.ID))
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id types.SessionID) (*model.Session, error) {
	ref := r.client.Collection(r.sessionsCollection()).Doc(id.String())
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrSessionNotFound, "cannot get session", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session document", goerr.V("id", id))
	}
	return fromSessionDoc(&doc)
}

func (r *sessionRepository) Update(ctx context.Context, s *model.Session) error {
	if err := s.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	doc, err := toSessionDoc(s)
	if err != nil {
		return err
	}

	ref := r.client.Collection(r.sessionsCollection()).Doc(doc.ID)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrSessionNotFound, "cannot update session", goerr.V("id", s.ID))
		}
		return goerr.Wrap(err, "failed to update session", goerr.V("id", s.ID))
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id types.SessionID) error {
	ref := r.client.Collection(r.sessionsCollection()).Doc(id.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrSessionNotFound, "cannot delete session", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete session", goerr.V("id", id))
	}
	return nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	query := r.client.Collection(r.sessionsCollection()).
		OrderBy("updated_at", firestore.Desc).
		OrderBy("created_at", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*model.Session
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate sessions")
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session document", goerr.V("doc", snap.Ref.ID))
		}
		s, err := fromSessionDoc(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, nil
}
