package stories

import "time"

// Lifetime is the fixed lifespan of a story.
const Lifetime = 24 * time.Hour

// ComputeExpiry returns the expiry for a story created at the given time.
// Pure function; the result is written once at creation and never mutated.
func ComputeExpiry(createdAt time.Time) time.Time {
	return createdAt.Add(Lifetime)
}

// IsLive reports whether an item with the given expiry is still visible at
// now. Visibility is evaluated at query time; actual deletion is the
// retention sweep's job and is decoupled from display.
func IsLive(expiresAt, now time.Time) bool {
	return now.Before(expiresAt)
}
