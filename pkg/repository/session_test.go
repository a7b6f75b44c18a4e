package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/repository/firestore"
	"github.com/intake-lab/prosecoach/pkg/repository/memory"
)

func newTestSession(jurisdiction string, track types.Track, at time.Time) *model.Session {
	return model.NewSession(jurisdiction, track, at)
}

func runSessionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Create and Get round-trips the full record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackProtectionOrder, base)
		s.Facts.GoalRelief = "order of protection"
		s.Facts.KeyPeople = []string{"A.B. (ex-partner)"}
		s.Facts.Timeline = []model.TimelineEntry{
			{Date: "2025-01-05", Event: "First threatening message"},
			{Date: "2025-02-12", Event: "Showed up at workplace"},
		}
		s.Facts.Extra = map[string]any{"housing_status": "shared lease"}
		s.Append(model.NewMessage(types.RoleUser, "He keeps showing up at my work", base))
		s.Append(model.NewMessage(types.RoleAssistant, "When did that start?", base.Add(time.Second)))

		gt.NoError(t, repo.Session().Create(ctx, s)).Required()

		got, err := repo.Session().Get(ctx, s.ID)
		gt.NoError(t, err).Required()

		gt.Value(t, got.ID).Equal(s.ID)
		gt.Value(t, got.Jurisdiction).Equal("New York")
		gt.Value(t, got.Track).Equal(types.TrackProtectionOrder)
		gt.Value(t, got.Facts.GoalRelief).Equal("order of protection")
		gt.Array(t, got.Facts.KeyPeople).Length(1)
		gt.Array(t, got.Facts.Timeline).Length(2)
		gt.Value(t, got.Facts.Timeline[0].Date).Equal("2025-01-05")
		gt.Value(t, got.Facts.Extra["housing_status"]).Equal("shared lease")
		gt.Array(t, got.Messages).Length(2)
		gt.Value(t, got.Messages[0].Role).Equal(types.RoleUser)
		gt.Value(t, got.Messages[1].Content).Equal("When did that start?")
	})

	t.Run("Create rejects duplicate IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackGeneric, base)
		gt.NoError(t, repo.Session().Create(ctx, s)).Required()

		err := repo.Session().Create(ctx, s)
		gt.Error(t, err).Is(types.ErrSessionExists)
	})

	t.Run("Get returns NotFound for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Session().Get(ctx, types.NewSessionID())
		gt.Error(t, err).Is(types.ErrSessionNotFound)
	})

	t.Run("Update replaces the stored record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackCustody, base)
		gt.NoError(t, repo.Session().Create(ctx, s)).Required()

		s.Facts.GoalRelief = "modify visitation schedule"
		s.Append(model.NewMessage(types.RoleUser, "I want to change the schedule", base.Add(time.Minute)))
		s.Touch(base.Add(time.Minute))
		gt.NoError(t, repo.Session().Update(ctx, s)).Required()

		got, err := repo.Session().Get(ctx, s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Facts.GoalRelief).Equal("modify visitation schedule")
		gt.Array(t, got.Messages).Length(1)
		gt.B(t, got.UpdatedAt.Equal(base.Add(time.Minute))).True()
	})

	t.Run("Update fails for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackGeneric, base)
		err := repo.Session().Update(ctx, s)
		gt.Error(t, err).Is(types.ErrSessionNotFound)
	})

	t.Run("Delete removes the record permanently", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackLandlordTenant, base)
		gt.NoError(t, repo.Session().Create(ctx, s)).Required()
		gt.NoError(t, repo.Session().Delete(ctx, s.ID)).Required()

		_, err := repo.Session().Get(ctx, s.ID)
		gt.Error(t, err).Is(types.ErrSessionNotFound)
	})

	t.Run("Delete fails for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Session().Delete(ctx, types.NewSessionID())
		gt.Error(t, err).Is(types.ErrSessionNotFound)
	})

	t.Run("List orders by last update, newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s1 := newTestSession("New York", types.TrackGeneric, base)
		s2 := newTestSession("New York", types.TrackGeneric, base.Add(time.Minute))
		s3 := newTestSession("New York", types.TrackGeneric, base.Add(2*time.Minute))
		gt.NoError(t, repo.Session().Create(ctx, s1)).Required()
		gt.NoError(t, repo.Session().Create(ctx, s2)).Required()
		gt.NoError(t, repo.Session().Create(ctx, s3)).Required()

		// Touching the oldest session moves it to the front
		s1.Touch(base.Add(10 * time.Minute))
		gt.NoError(t, repo.Session().Update(ctx, s1)).Required()

		sessions, err := repo.Session().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, sessions).Length(3)
		gt.Value(t, sessions[0].ID).Equal(s1.ID)
		gt.Value(t, sessions[1].ID).Equal(s3.ID)
		gt.Value(t, sessions[2].ID).Equal(s2.ID)
	})

	t.Run("Stored sessions are isolated from caller mutation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("New York", types.TrackGeneric, base)
		s.Facts.Evidence = []string{"texts"}
		gt.NoError(t, repo.Session().Create(ctx, s)).Required()

		s.Facts.Evidence[0] = "mutated"
		s.Jurisdiction = "mutated"

		got, err := repo.Session().Get(ctx, s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Facts.Evidence[0]).Equal("texts")
		gt.Value(t, got.Jurisdiction).Equal("New York")
	})
}

func TestSessionRepository_Memory(t *testing.T) {
	runSessionRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestSessionRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT_ID not set")
	}

	runSessionRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "",
			firestore.WithCollectionPrefix("test_"+time.Now().Format("20060102150405")+"_"))
		gt.NoError(t, err).Required()
		return repo
	})
}
