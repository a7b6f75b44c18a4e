package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
)

func TestMergeFactMaps(t *testing.T) {
	t.Run("nested objects merge key by key", func(t *testing.T) {
		base := map[string]any{
			"goal_relief": "order of protection",
			"child_info":  map[string]any{"count": 2.0, "ages": "4 and 7"},
		}
		patch := map[string]any{
			"child_info": map[string]any{"school": "PS 12"},
		}

		merged := model.MergeFactMaps(base, patch)

		child := merged["child_info"].(map[string]any)
		gt.Value(t, child["count"]).Equal(2.0)
		gt.Value(t, child["ages"]).Equal("4 and 7")
		gt.Value(t, child["school"]).Equal("PS 12")
		gt.Value(t, merged["goal_relief"]).Equal("order of protection")
	})

	t.Run("arrays and scalars overwrite", func(t *testing.T) {
		base := map[string]any{
			"evidence": []any{"texts"},
			"track":    "generic",
		}
		patch := map[string]any{
			"evidence": []any{"photos", "police report"},
			"track":    "protection_order",
		}

		merged := model.MergeFactMaps(base, patch)

		gt.Array(t, merged["evidence"].([]any)).Length(2)
		gt.Value(t, merged["track"]).Equal("protection_order")
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		base := map[string]any{
			"goal_relief": "stop the harassment",
			"child_info":  map[string]any{"count": 1.0},
		}
		patch := map[string]any{
			"child_info": map[string]any{"ages": "3"},
			"evidence":   []any{"texts"},
		}

		once := model.MergeFactMaps(base, patch)
		twice := model.MergeFactMaps(once, patch)

		gt.Value(t, twice).Equal(once)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		base := map[string]any{"goal_relief": "original"}
		patch := map[string]any{"goal_relief": "changed"}

		_ = model.MergeFactMaps(base, patch)

		gt.Value(t, base["goal_relief"]).Equal("original")
	})
}

func TestFactsMerge(t *testing.T) {
	t.Run("unknown keys survive the merge", func(t *testing.T) {
		f := model.Facts{GoalRelief: "custody modification"}

		merged, err := f.Merge(map[string]any{
			"pet_custody": "dog stays with me",
			"evidence":    []any{"vet records"},
		})
		gt.NoError(t, err).Required()

		gt.Value(t, merged.GoalRelief).Equal("custody modification")
		gt.Array(t, merged.Evidence).Length(1)
		gt.Value(t, merged.Extra["pet_custody"]).Equal("dog stays with me")

		// Unknown keys also survive a second, unrelated merge
		again, err := merged.Merge(map[string]any{"user_story": "short version"})
		gt.NoError(t, err).Required()
		gt.Value(t, again.Extra["pet_custody"]).Equal("dog stays with me")
		gt.Value(t, again.UserStory).Equal("short version")
	})

	t.Run("timeline entries deserialize into typed form", func(t *testing.T) {
		f := model.Facts{}
		merged, err := f.Merge(map[string]any{
			"timeline": []any{
				map[string]any{"date": "2025-01-05", "event": "first incident"},
			},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, merged.Timeline).Length(1)
		gt.Value(t, merged.Timeline[0].Event).Equal("first incident")
	})

	t.Run("empty patch returns facts unchanged", func(t *testing.T) {
		f := model.Facts{GoalRelief: "x", Extra: map[string]any{"k": "v"}}
		merged, err := f.Merge(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, merged.GoalRelief).Equal("x")
		gt.Value(t, merged.Extra["k"]).Equal("v")
	})
}

func TestFactsJSON(t *testing.T) {
	t.Run("canonical and extra keys flatten into one object", func(t *testing.T) {
		f := model.Facts{
			Jurisdiction: "New York",
			Evidence:     []string{"texts"},
			Extra:        map[string]any{"housing_status": "month to month"},
		}

		raw, err := json.Marshal(f)
		gt.NoError(t, err).Required()

		var m map[string]any
		gt.NoError(t, json.Unmarshal(raw, &m)).Required()
		gt.Value(t, m["jurisdiction"]).Equal("New York")
		gt.Value(t, m["housing_status"]).Equal("month to month")
	})

	t.Run("canonical fields win over colliding extra keys", func(t *testing.T) {
		f := model.Facts{
			Jurisdiction: "New York",
			Extra:        map[string]any{"jurisdiction": "shadow"},
		}

		raw, err := json.Marshal(f)
		gt.NoError(t, err).Required()

		var m map[string]any
		gt.NoError(t, json.Unmarshal(raw, &m)).Required()
		gt.Value(t, m["jurisdiction"]).Equal("New York")
	})

	t.Run("round trip preserves both tiers", func(t *testing.T) {
		original := model.Facts{
			Track:    "custody",
			KeyDates: []string{"2025-02-01"},
			Extra:    map[string]any{"school_district": "D15"},
		}

		raw, err := json.Marshal(original)
		gt.NoError(t, err).Required()

		var decoded model.Facts
		gt.NoError(t, json.Unmarshal(raw, &decoded)).Required()
		gt.Value(t, decoded.Track).Equal("custody")
		gt.Array(t, decoded.KeyDates).Length(1)
		gt.Value(t, decoded.Extra["school_district"]).Equal("D15")
	})
}

func TestMergeSafetyFlags(t *testing.T) {
	t.Run("union keeps first-seen order without duplicates", func(t *testing.T) {
		got := model.MergeSafetyFlags(
			[]string{"threats", "stalking"},
			[]string{"stalking", "dv-indicator", "threats"},
		)
		gt.Array(t, got).Length(3)
		gt.Value(t, got[0]).Equal("threats")
		gt.Value(t, got[1]).Equal("stalking")
		gt.Value(t, got[2]).Equal("dv-indicator")
	})

	t.Run("blank entries are dropped", func(t *testing.T) {
		got := model.MergeSafetyFlags([]string{" ", "threats"}, []string{"", "  threats  "})
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal("threats")
	})
}
