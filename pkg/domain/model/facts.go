package model

import (
	"encoding/json"
	"strings"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// TimelineEntry represents one dated event in the intake timeline
type TimelineEntry struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

// Facts is the structured fact record accumulated across intake turns.
// The named fields are the canonical signals the coach tracks; Extra keeps
// any additional keys the generative collaborator extracts so that nothing
// a future version understands is dropped today.
type Facts struct {
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Track        string `json:"track,omitempty"`

	GoalRelief string `json:"goal_relief,omitempty"`
	UserStory  string `json:"user_story,omitempty"`
	KeyEvents  string `json:"key_events,omitempty"`

	KeyPeople []string `json:"key_people,omitempty"`
	Locations []string `json:"locations,omitempty"`

	KeyDates []string        `json:"key_dates,omitempty"`
	Timeline []TimelineEntry `json:"timeline,omitempty"`

	Evidence []string `json:"evidence,omitempty"`

	ChildInfo           string           `json:"child_info,omitempty"`
	RelationshipContext string           `json:"relationship_context,omitempty"`
	Incidents           []map[string]any `json:"incidents,omitempty"`

	SafetyFlags []string          `json:"safety_flags,omitempty"`
	SafetyLevel types.SafetyLevel `json:"safety_level,omitempty"`

	// Extra holds fact keys without a canonical shape. Keys are case-sensitive
	// and survive merges untouched unless a patch overwrites them.
	Extra map[string]any `json:"-"`
}

// factsAlias avoids recursion in the custom JSON round trip
type factsAlias Facts

var canonicalFactKeys = map[string]struct{}{
	"jurisdiction":         {},
	"track":                {},
	"goal_relief":          {},
	"user_story":           {},
	"key_events":           {},
	"key_people":           {},
	"locations":            {},
	"key_dates":            {},
	"timeline":             {},
	"evidence":             {},
	"child_info":           {},
	"relationship_context": {},
	"incidents":            {},
	"safety_flags":         {},
	"safety_level":         {},
}

// MarshalJSON flattens the canonical fields and Extra into one object.
// Canonical fields win when a key exists in both.
func (f Facts) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(factsAlias(f))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal canonical facts")
	}

	merged := make(map[string]any, len(f.Extra)+8)
	for k, v := range f.Extra {
		merged[k] = v
	}

	var canonical map[string]any
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return nil, goerr.Wrap(err, "failed to decode canonical facts")
	}
	for k, v := range canonical {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// UnmarshalJSON splits an object into canonical fields and Extra passthrough keys
func (f *Facts) UnmarshalJSON(data []byte) error {
	var alias factsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return goerr.Wrap(err, "failed to unmarshal canonical facts")
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return goerr.Wrap(err, "failed to unmarshal fact object")
	}
	for k := range canonicalFactKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}

	*f = Facts(alias)
	f.Extra = all
	return nil
}

// ToMap converts the facts to a plain nested map
func (f Facts) ToMap() (map[string]any, error) {
	raw, err := f.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to decode fact map")
	}
	return m, nil
}

// FactsFromMap builds Facts from a plain nested map
func FactsFromMap(m map[string]any) (Facts, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return Facts{}, goerr.Wrap(err, "failed to encode fact map")
	}
	var f Facts
	if err := f.UnmarshalJSON(raw); err != nil {
		return Facts{}, err
	}
	return f, nil
}

// MergeFactMaps folds patch into base recursively and returns a new map.
// Objects merge key by key; arrays and scalars overwrite. Neither input is
// mutated, and applying the same patch twice yields the same result.
func MergeFactMaps(base map[string]any, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		patchObj, patchIsObj := v.(map[string]any)
		baseObj, baseIsObj := out[k].(map[string]any)
		if patchIsObj && baseIsObj {
			out[k] = MergeFactMaps(baseObj, patchObj)
			continue
		}
		out[k] = v
	}
	return out
}

// Merge folds a fact patch into the record and returns the merged facts
func (f Facts) Merge(patch map[string]any) (Facts, error) {
	if len(patch) == 0 {
		return f, nil
	}
	base, err := f.ToMap()
	if err != nil {
		return Facts{}, err
	}
	merged, err := FactsFromMap(MergeFactMaps(base, patch))
	if err != nil {
		return Facts{}, err
	}
	return merged, nil
}

// Clone returns a deep copy of the facts
func (f Facts) Clone() Facts {
	raw, err := f.MarshalJSON()
	if err != nil {
		return f
	}
	var out Facts
	if err := out.UnmarshalJSON(raw); err != nil {
		return f
	}
	return out
}

// MergeSafetyFlags returns the union of existing and next flags, trimmed and
// deduplicated, preserving first-seen order.
func MergeSafetyFlags(existing []string, next []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(next))
	var out []string
	for _, flag := range append(append([]string{}, existing...), next...) {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}
		if _, ok := seen[flag]; ok {
			continue
		}
		seen[flag] = struct{}{}
		out = append(out, flag)
	}
	return out
}
