package types

// SafetyLevel represents the risk level assessed for a user utterance.
// Ordering matters: urgent pre-empts concern, concern pre-empts none.
type SafetyLevel string

const (
	SafetyLevelNone    SafetyLevel = "none"
	SafetyLevelConcern SafetyLevel = "concern"
	SafetyLevelUrgent  SafetyLevel = "urgent"
)

// IsValid checks if the safety level is valid
func (s SafetyLevel) IsValid() bool {
	switch s {
	case SafetyLevelNone, SafetyLevelConcern, SafetyLevelUrgent:
		return true
	default:
		return false
	}
}

// Normalize returns the level, treating empty as SafetyLevelNone.
func (s SafetyLevel) Normalize() SafetyLevel {
	if s == "" {
		return SafetyLevelNone
	}
	return s
}

// String returns the string representation of the safety level
func (s SafetyLevel) String() string {
	return string(s)
}

// Severity returns a comparable rank for the level. Higher is more severe.
func (s SafetyLevel) Severity() int {
	switch s {
	case SafetyLevelUrgent:
		return 2
	case SafetyLevelConcern:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of the two levels.
func (s SafetyLevel) Max(other SafetyLevel) SafetyLevel {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}
