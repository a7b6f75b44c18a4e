package progress

import (
	"math"
	"strings"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
)

// Canonical names of the six required signals, in evaluation order
const (
	FieldJurisdiction        = "jurisdiction"
	FieldTrack               = "track"
	FieldGoalRelief          = "goal_relief"
	FieldPeople              = "people"
	FieldKeyEventsOrTimeline = "key_events_or_timeline"
	FieldEvidence            = "evidence"
)

const totalSignals = 6

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// MissingFields evaluates the six-signal checklist in its fixed order and
// returns the names of signals the session does not yet satisfy. Adding a
// signal can only shrink this set.
func MissingFields(s *model.Session) []string {
	f := s.Facts
	var missing []string

	if !hasText(s.Jurisdiction) {
		missing = append(missing, FieldJurisdiction)
	}
	if s.Track == "" {
		missing = append(missing, FieldTrack)
	}
	if !hasText(f.GoalRelief) {
		missing = append(missing, FieldGoalRelief)
	}
	if len(f.KeyPeople) == 0 && f.Extra[FieldPeople] == nil {
		missing = append(missing, FieldPeople)
	}
	if !hasText(f.KeyEvents) && len(f.Timeline) == 0 {
		missing = append(missing, FieldKeyEventsOrTimeline)
	}
	if len(f.Evidence) == 0 {
		missing = append(missing, FieldEvidence)
	}

	return missing
}

// Percent converts the checklist into a completeness percentage. The value is
// clamped to [5, 95]: intake is always provisional until explicit review, so
// the estimate never claims fully empty or fully complete.
func Percent(s *model.Session) int {
	filled := totalSignals - len(MissingFields(s))
	pct := int(math.Round(float64(filled) / float64(totalSignals) * 100))
	if pct < 5 {
		pct = 5
	}
	if pct > 95 {
		pct = 95
	}
	return pct
}

// Gaps builds the reviewer-facing gap list for a session: the core
// court-ready basics first, then any track-specific prompts supplied by
// configuration. The result is deduplicated in first-seen order.
func Gaps(s *model.Session, trackPrompts []string) []string {
	f := s.Facts
	var gaps []string

	if !hasText(f.GoalRelief) {
		gaps = append(gaps, "Clarify exactly what you want the judge to do (specific relief).")
	}
	if len(f.KeyPeople) == 0 {
		gaps = append(gaps, "Identify the key people involved and each person's role.")
	}

	switch {
	case len(f.Timeline) == 0 && !hasText(f.KeyEvents) && !hasText(f.UserStory):
		gaps = append(gaps, "Add 3-6 key events in date order (approximate dates are okay).")
	default:
		for _, entry := range f.Timeline {
			if !hasText(entry.Event) {
				gaps = append(gaps, "Some timeline entries are missing the event description (what happened).")
				break
			}
		}
		for _, entry := range f.Timeline {
			if !hasText(entry.Date) {
				gaps = append(gaps, "Some timeline entries are missing dates (approximate dates are okay).")
				break
			}
		}
	}

	if len(f.Evidence) == 0 {
		gaps = append(gaps, "List supporting evidence you may have (texts, emails, photos, witnesses, records).")
	}

	gaps = append(gaps, trackPrompts...)

	gaps = append(gaps, "Identify the single strongest example that supports your request.")
	gaps = append(gaps, "Write 1-2 sentences on what the other side will argue and your short response.")

	return dedup(gaps)
}

func dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
