package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/repository/memory"
	"github.com/intake-lab/prosecoach/pkg/usecase"
)

func TestSessionUseCase(t *testing.T) {
	t.Run("Create applies defaults", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(testClock()))

		s, err := uc.Session.Create(context.Background(), usecase.CreateSessionInput{})
		gt.NoError(t, err).Required()
		gt.Value(t, s.Jurisdiction).Equal("New York")
		gt.Value(t, s.Track).Equal(types.TrackProtectionOrder)
		gt.Array(t, s.Messages).Length(0)
	})

	t.Run("Create normalizes unknown tracks", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(testClock()))

		s, err := uc.Session.Create(context.Background(), usecase.CreateSessionInput{Track: "small_claims"})
		gt.NoError(t, err).Required()
		gt.Value(t, s.Track).Equal(types.TrackGeneric)
	})

	t.Run("Create merges seed facts and promotes classification", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(testClock()))

		s, err := uc.Session.Create(context.Background(), usecase.CreateSessionInput{
			SeedFacts: map[string]any{
				"jurisdiction": "Kings County, NY",
				"track":        "custody",
				"goal_relief":  "modify visitation",
			},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, s.Jurisdiction).Equal("Kings County, NY")
		gt.Value(t, s.Track).Equal(types.TrackCustody)
		gt.Value(t, s.Facts.GoalRelief).Equal("modify visitation")
	})

	t.Run("Patch updates metadata in both tiers", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithClock(testClock()))
		s := seedSession(t, uc)

		jurisdiction := "Queens County, NY"
		track := "landlord_tenant"
		patched, err := uc.Session.Patch(context.Background(), s.ID, usecase.PatchSessionInput{
			Jurisdiction: &jurisdiction,
			Track:        &track,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, patched.Jurisdiction).Equal(jurisdiction)
		gt.Value(t, patched.Facts.Jurisdiction).Equal(jurisdiction)
		gt.Value(t, patched.Track).Equal(types.TrackLandlordTenant)
		gt.Value(t, patched.Facts.Track).Equal("landlord_tenant")
		gt.B(t, patched.UpdatedAt.After(s.CreatedAt)).True()
	})

	t.Run("MergeFacts deep-merges nested objects", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithClock(testClock()))
		s := seedSession(t, uc)

		_, err := uc.Session.MergeFacts(context.Background(), s.ID, map[string]any{
			"custody_details": map[string]any{"current_schedule": "alternate weekends"},
		})
		gt.NoError(t, err).Required()

		facts, err := uc.Session.MergeFacts(context.Background(), s.ID, map[string]any{
			"custody_details": map[string]any{"requested_schedule": "week on, week off"},
		})
		gt.NoError(t, err).Required()

		details := facts.Extra["custody_details"].(map[string]any)
		gt.Value(t, details["current_schedule"]).Equal("alternate weekends")
		gt.Value(t, details["requested_schedule"]).Equal("week on, week off")
	})

	t.Run("AppendMessage validates role and content", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithClock(testClock()))
		s := seedSession(t, uc)

		msg, err := uc.Session.AppendMessage(context.Background(), s.ID, types.RoleUser, "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, msg.Content).Equal("hello")

		_, err = uc.Session.AppendMessage(context.Background(), s.ID, types.Role("system"), "nope")
		gt.Error(t, err).Is(usecase.ErrInvalidInput)

		_, err = uc.Session.AppendMessage(context.Background(), s.ID, types.RoleUser, "  ")
		gt.Error(t, err).Is(usecase.ErrInvalidInput)

		messages, err := uc.Session.Messages(context.Background(), s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, messages).Length(1)
	})

	t.Run("Delete is permanent", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithClock(testClock()))
		s := seedSession(t, uc)

		gt.NoError(t, uc.Session.Delete(context.Background(), s.ID)).Required()

		_, err := uc.Session.Get(context.Background(), s.ID)
		gt.Error(t, err).Is(types.ErrSessionNotFound)

		err = uc.Session.Delete(context.Background(), s.ID)
		gt.Error(t, err).Is(types.ErrSessionNotFound)
	})
}
