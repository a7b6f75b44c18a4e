package safety

import (
	"regexp"

	"github.com/intake-lab/prosecoach/pkg/domain/types"
)

// Assessment is the result of classifying one user utterance. It is ephemeral;
// only the flags are carried forward onto the session record.
type Assessment struct {
	Level types.SafetyLevel
	Flags []string

	// Message is the fixed user-facing reply, set only when Level is urgent.
	Message string
}

// IsUrgent reports whether the assessment pre-empts normal coaching
func (a Assessment) IsUrgent() bool {
	return a.Level == types.SafetyLevelUrgent
}

type pattern struct {
	re   *regexp.Regexp
	flag string
}

// Two ordered tiers. Classification must stay deterministic and local: the
// generative collaborator may be down, slow, or wrong, so this runs first on
// every turn and its urgent verdict is final.
var urgentPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(kill myself|suicide|end my life|self[-\s]?harm)\b`), "self-harm"},
	{regexp.MustCompile(`(?i)\b(kill you|kill him|kill her|shoot|stab|hurt them)\b`), "harm-to-others"},
	{regexp.MustCompile(`(?i)\b(he has a gun|she has a gun|weapon|knife|i have a gun)\b`), "weapon-mention"},
	{regexp.MustCompile(`(?i)\b(i'm in danger|i am in danger|unsafe right now|he's outside|she's outside)\b`), "immediate-danger"},
}

var concernPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(stalking|follow(ing)? me|tracking me)\b`), "stalking"},
	{regexp.MustCompile(`(?i)\b(threat(en|ening|s)?|blackmail)\b`), "threats"},
	{regexp.MustCompile(`(?i)\b(domestic violence|abuse(d)?|hit me|choked me|strangled)\b`), "dv-indicator"},
}

const urgentMessage = `I'm concerned you may be in immediate danger.
If you are in the U.S. and you feel unsafe right now, call 911.
If you can't call safely, try to get to a safe place and contact someone you trust or a local emergency service.
If this is about self-harm, you can call or text 988 (Suicide & Crisis Lifeline in the U.S.).
If you're outside the U.S., contact your local emergency number or crisis hotline.

If you want, tell me (1) whether you are safe right now, and (2) whether this is an emergency situation today.`

// UrgentMessage returns the fixed reply shown whenever an urgent pattern matches
func UrgentMessage() string {
	return urgentMessage
}

// Assess classifies the text against both tiers. Any urgent match short-circuits:
// concern patterns are not evaluated once urgent is found.
func Assess(text string) Assessment {
	var flags []string

	for _, p := range urgentPatterns {
		if p.re.MatchString(text) {
			flags = append(flags, p.flag)
		}
	}
	if len(flags) > 0 {
		return Assessment{
			Level:   types.SafetyLevelUrgent,
			Flags:   flags,
			Message: urgentMessage,
		}
	}

	for _, p := range concernPatterns {
		if p.re.MatchString(text) {
			flags = append(flags, p.flag)
		}
	}
	if len(flags) > 0 {
		return Assessment{
			Level: types.SafetyLevelConcern,
			Flags: flags,
		}
	}

	return Assessment{Level: types.SafetyLevelNone}
}
