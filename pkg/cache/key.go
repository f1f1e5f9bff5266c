package cache

import (
	"strings"
	"time"
)

// Key prefixes. These are observable through invalidation and must not change.
const (
	SessionPrefix         = "session:"
	LocationsSearchPrefix = "locations:search:"
	JourneysPrefix        = "journeys:"

	// AllLocations is the search term sentinel used when no term is given.
	AllLocations = "all"
)

// Expiration per key space.
const (
	SessionTTL   = 1 * time.Hour
	LocationsTTL = 30 * time.Minute
	JourneysTTL  = 15 * time.Minute
)

// DateLayout is the yyyy-MM-dd layout used in journey keys and provider payloads.
const DateLayout = "2006-01-02"

// SessionKey returns the key a provider session is cached under.
//
// Example:
//
//	session:abc123
func SessionKey(sessionID string) string {
	return SessionPrefix + sessionID
}

// LocationsKey returns the key for a location search. The term is case-folded so
// that "Istanbul" and "istanbul" share an entry; an empty term maps to "all".
//
// Example:
//
//	locations:search:istanbul
func LocationsKey(searchTerm string) string {
	if searchTerm == "" {
		return LocationsSearchPrefix + AllLocations
	}
	return LocationsSearchPrefix + strings.ToLower(searchTerm)
}

// JourneysKey returns the key for a journey search on one route and date.
//
// Example:
//
//	journeys:349:356:2025-03-14
func JourneysKey(originID, destinationID string, departureDate time.Time) string {
	return JourneysPrefix + originID + ":" + destinationID + ":" + departureDate.Format(DateLayout)
}

// keySpace returns the metric label for a key.
func keySpace(key string) string {
	switch {
	case strings.HasPrefix(key, SessionPrefix):
		return "session"
	case strings.HasPrefix(key, LocationsSearchPrefix):
		return "locations"
	case strings.HasPrefix(key, JourneysPrefix):
		return "journeys"
	default:
		return "other"
	}
}
