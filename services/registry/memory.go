package registry

import (
	"fmt"
	"sync"
	"time"

	"brightcall/models"

	"github.com/google/uuid"
)

// MemoryRegistry is the default in-process Registry implementation.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*models.CallSession
	now      func() time.Time
}

// NewMemoryRegistry returns an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]*models.CallSession),
		now:      time.Now,
	}
}

// newCorrelationID generates a high-entropy correlation token. Collisions are
// not guarded against; the timestamp plus random suffix makes them untenably
// rare at this call volume.
func newCorrelationID(now time.Time) string {
	return fmt.Sprintf("call-%d-%s", now.UnixNano(), uuid.New().String()[:8])
}

func (r *MemoryRegistry) Create(data models.SessionData) (string, error) {
	now := r.now()
	session := &models.CallSession{
		ID:           newCorrelationID(now),
		To:           data.To,
		LeadName:     data.LeadName,
		Organization: data.Organization,
		Email:        data.Email,
		CreatedAt:    now,
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()
	return session.ID, nil
}

func (r *MemoryRegistry) Get(id string) (*models.CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *MemoryRegistry) ScheduleExpiry(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
	})
}

var _ Registry = (*MemoryRegistry)(nil)
