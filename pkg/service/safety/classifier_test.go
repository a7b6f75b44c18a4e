package safety_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/service/safety"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel types.SafetyLevel
		wantFlags []string
	}{
		{
			name:      "plain intake text is clean",
			input:     "I want to ask the court for more visitation time with my kids",
			wantLevel: types.SafetyLevelNone,
		},
		{
			name:      "self-harm language is urgent",
			input:     "Some days I just want to end my life",
			wantLevel: types.SafetyLevelUrgent,
			wantFlags: []string{"self-harm"},
		},
		{
			name:      "weapon plus danger matches both urgent patterns",
			input:     "I have a gun and he's outside right now",
			wantLevel: types.SafetyLevelUrgent,
			wantFlags: []string{"weapon-mention", "immediate-danger"},
		},
		{
			name:      "harm to others is urgent",
			input:     "sometimes I think I could kill him for what he did",
			wantLevel: types.SafetyLevelUrgent,
			wantFlags: []string{"harm-to-others"},
		},
		{
			name:      "stalking is a concern",
			input:     "He keeps following me home from work every day",
			wantLevel: types.SafetyLevelConcern,
			wantFlags: []string{"stalking"},
		},
		{
			name:      "threats and abuse stack concern flags",
			input:     "He keeps threatening me and he hit me last month",
			wantLevel: types.SafetyLevelConcern,
			wantFlags: []string{"threats", "dv-indicator"},
		},
		{
			name:      "past-tense threatened is outside the threats pattern",
			input:     "He threatened me in the hallway",
			wantLevel: types.SafetyLevelNone,
		},
		{
			name:      "urgent short-circuits the concern tier",
			input:     "He threatened to kill me, I'm in danger, he's been stalking me",
			wantLevel: types.SafetyLevelUrgent,
			wantFlags: []string{"immediate-danger"},
		},
		{
			name:      "matching is case-insensitive",
			input:     "HE HAS A GUN",
			wantLevel: types.SafetyLevelUrgent,
			wantFlags: []string{"weapon-mention"},
		},
		{
			name:      "word boundaries prevent substring hits",
			input:     "my landlord overthrew the agreement",
			wantLevel: types.SafetyLevelNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := safety.Assess(tt.input)
			gt.Value(t, got.Level).Equal(tt.wantLevel)
			gt.Array(t, got.Flags).Length(len(tt.wantFlags)).Required()
			for i, flag := range tt.wantFlags {
				gt.Value(t, got.Flags[i]).Equal(flag)
			}
			if tt.wantLevel == types.SafetyLevelUrgent {
				gt.B(t, got.IsUrgent()).True()
				gt.Value(t, got.Message).Equal(safety.UrgentMessage())
			} else {
				gt.Value(t, got.Message).Equal("")
			}
		})
	}
}
