package models

import "time"

// UniverseList is a named, ordered set of ticker symbols with the time it
// was last fetched from its authoritative source.
type UniverseList struct {
	Name      string    `json:"name"`
	Symbols   []string  `json:"symbols"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether the list is younger than the refresh window.
func (u *UniverseList) Fresh(window time.Duration, now time.Time) bool {
	if u == nil {
		return false
	}
	return now.Sub(u.FetchedAt) < window
}

// Truncated returns at most max symbols, or all of them when max <= 0.
func (u *UniverseList) Truncated(max int) []string {
	if max <= 0 || max >= len(u.Symbols) {
		return u.Symbols
	}
	return u.Symbols[:max]
}
