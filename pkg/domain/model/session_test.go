package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

func TestSession(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("NewSession seeds facts with classification", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackCustody, base)
		gt.NoError(t, s.ID.Validate())
		gt.Value(t, s.Facts.Jurisdiction).Equal("New York")
		gt.Value(t, s.Facts.Track).Equal("custody")
		gt.B(t, s.CreatedAt.Equal(s.UpdatedAt)).True()
	})

	t.Run("unknown track normalizes to generic", func(t *testing.T) {
		s := model.NewSession("New York", types.Track("small_claims"), base)
		gt.Value(t, s.Track).Equal(types.TrackGeneric)
	})

	t.Run("Touch never moves the timestamp backwards", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackGeneric, base)
		s.Touch(base.Add(time.Minute))
		s.Touch(base.Add(-time.Hour))
		gt.B(t, s.UpdatedAt.Equal(base.Add(time.Minute))).True()
	})

	t.Run("Validate rejects updatedAt before createdAt", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackGeneric, base)
		s.UpdatedAt = base.Add(-time.Second)
		gt.Error(t, s.Validate())
	})

	t.Run("Validate rejects invalid message roles", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackGeneric, base)
		s.Append(model.NewMessage(types.Role("system"), "nope", base))
		gt.Error(t, s.Validate())
	})

	t.Run("LastUserText skips assistant messages", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackGeneric, base)
		s.Append(model.NewMessage(types.RoleUser, "first", base))
		s.Append(model.NewMessage(types.RoleAssistant, "reply", base))
		gt.Value(t, s.LastUserText()).Equal("first")
	})

	t.Run("PromoteCanonicalFacts lifts jurisdiction and track", func(t *testing.T) {
		s := model.NewSession("", types.TrackGeneric, base)
		s.Facts.Jurisdiction = "Kings County, NY"
		s.Facts.Track = "protection_order"
		s.PromoteCanonicalFacts()
		gt.Value(t, s.Jurisdiction).Equal("Kings County, NY")
		gt.Value(t, s.Track).Equal(types.TrackProtectionOrder)
	})

	t.Run("Clone is a deep copy", func(t *testing.T) {
		s := model.NewSession("New York", types.TrackGeneric, base)
		s.Facts.Evidence = []string{"texts"}
		s.Append(model.NewMessage(types.RoleUser, "hello", base))
		s.Outputs = &model.OutputsCache{
			GeneratedAt: base,
			Packet:      &model.Packet{OralScript2Min: "script", OralOutline5Min: "outline"},
		}

		clone := s.Clone()
		clone.Facts.Evidence[0] = "mutated"
		clone.Messages[0].Content = "mutated"
		clone.Outputs.Packet.OralScript2Min = "mutated"

		gt.Value(t, s.Facts.Evidence[0]).Equal("texts")
		gt.Value(t, s.Messages[0].Content).Equal("hello")
		gt.Value(t, s.Outputs.Packet.OralScript2Min).Equal("script")
	})
}

func TestPacketValidate(t *testing.T) {
	t.Run("requires script and outline", func(t *testing.T) {
		p := &model.Packet{OralScript2Min: "script", OralOutline5Min: "outline"}
		gt.NoError(t, p.Validate())

		gt.Error(t, (&model.Packet{OralOutline5Min: "outline"}).Validate())
		gt.Error(t, (&model.Packet{OralScript2Min: "script"}).Validate())
		gt.Error(t, (&model.Packet{OralScript2Min: "  ", OralOutline5Min: "outline"}).Validate())
	})
}
