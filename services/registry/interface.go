package registry

import (
	"time"

	"brightcall/models"
)

// Registry maps a call correlation id to its lead metadata for the lifetime
// of one call attempt.
type Registry interface {
	// Create generates a correlation id, stores the session, and returns the id.
	Create(data models.SessionData) (string, error)
	// Get returns the session for id, or false if absent or expired.
	Get(id string) (*models.CallSession, bool)
	// ScheduleExpiry removes the entry after delay. Idempotent if already removed.
	ScheduleExpiry(id string, delay time.Duration)
}
