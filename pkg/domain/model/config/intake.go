package config

import (
	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

// Defaults mirror the original New York pilot deployment
const (
	DefaultJurisdiction  = "New York"
	DefaultHistoryWindow = 12
	DefaultMaxQuestions  = 4
)

// IntakeConfig holds the behavior knobs of the intake coach that operators
// tune per deployment: defaults for new sessions and the track-specific
// prompts folded into packet gap lists.
type IntakeConfig struct {
	DefaultJurisdiction string
	DefaultTrack        types.Track

	// HistoryWindow bounds how many recent conversation turns are sent to
	// the generative collaborator.
	HistoryWindow int

	// MaxQuestions caps follow-up questions in the deterministic fallback
	MaxQuestions int

	TrackPrompts map[types.Track][]string
}

// Default returns the built-in configuration
func Default() *IntakeConfig {
	return &IntakeConfig{
		DefaultJurisdiction: DefaultJurisdiction,
		DefaultTrack:        types.TrackProtectionOrder,
		HistoryWindow:       DefaultHistoryWindow,
		MaxQuestions:        DefaultMaxQuestions,
		TrackPrompts: map[types.Track][]string{
			types.TrackProtectionOrder: {
				"For each incident: what was said or done, where, when, and whether there were witnesses or records.",
				"Any current safety concerns or urgency (immediate danger, threats, stalking, access to weapons).",
			},
			types.TrackCustody: {
				"The current custody or visitation arrangement (if any), and what change you are asking for.",
				"Concrete examples supporting why the change is needed (dates, behaviors, impacts on the child).",
			},
			types.TrackLandlordTenant: {
				"Address of the property and the key events (lease start, notices, repair requests, payments, court dates).",
				"Documents you have: lease, notices, rent ledger, repair requests, photos, inspection reports.",
			},
		},
	}
}

// Normalize fills zero values from the defaults so a partially populated
// config (e.g. a sparse TOML file) behaves predictably.
func (c *IntakeConfig) Normalize() {
	def := Default()
	if c.DefaultJurisdiction == "" {
		c.DefaultJurisdiction = def.DefaultJurisdiction
	}
	c.DefaultTrack = c.DefaultTrack.Normalize()
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = def.HistoryWindow
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = def.MaxQuestions
	}
	if c.TrackPrompts == nil {
		c.TrackPrompts = def.TrackPrompts
	}
}

// PromptsFor returns the gap prompts configured for a track
func (c *IntakeConfig) PromptsFor(track types.Track) []string {
	if c.TrackPrompts == nil {
		return nil
	}
	return c.TrackPrompts[track.Normalize()]
}
