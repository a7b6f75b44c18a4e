package types

import "fmt"

// Track represents the case category of an intake session. It steers which
// fact gaps are treated as high priority when coaching.
type Track string

const (
	TrackProtectionOrder Track = "protection_order"
	TrackCustody         Track = "custody"
	TrackLandlordTenant  Track = "landlord_tenant"
	TrackGeneric         Track = "generic"
)

// AllTracks returns all valid tracks
func AllTracks() []Track {
	return []Track{
		TrackProtectionOrder,
		TrackCustody,
		TrackLandlordTenant,
		TrackGeneric,
	}
}

// IsValid checks if the track is valid
func (t Track) IsValid() bool {
	switch t {
	case TrackProtectionOrder,
		TrackCustody,
		TrackLandlordTenant,
		TrackGeneric:
		return true
	default:
		return false
	}
}

// Normalize returns the track, treating empty or unknown values as TrackGeneric.
func (t Track) Normalize() Track {
	if t.IsValid() {
		return t
	}
	return TrackGeneric
}

// String returns the string representation of the track
func (t Track) String() string {
	return string(t)
}

// ParseTrack parses a string into a Track
func ParseTrack(s string) (Track, error) {
	track := Track(s)
	if !track.IsValid() {
		return "", fmt.Errorf("invalid track: %s", s)
	}
	return track, nil
}
