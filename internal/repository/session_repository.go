package repository

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/workflow"
)

// SessionRepository holds live workflow sessions. Sessions are process
// local and never persisted.
type SessionRepository interface {
	Create(ctx context.Context, session *workflow.Session) error
	GetByID(ctx context.Context, id string) (*workflow.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteIdle drops sessions last seen before cutoff and returns them
	DeleteIdle(ctx context.Context, cutoff time.Time) []*workflow.Session
	Count() int
}

// MemorySessionRepository implements SessionRepository using an in-memory map
type MemorySessionRepository struct {
	sessions map[string]*workflow.Session
	mu       sync.RWMutex
}

// NewMemorySessionRepository creates an empty session registry
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*workflow.Session),
	}
}

// Create registers a session; ids must be unique
func (r *MemorySessionRepository) Create(ctx context.Context, session *workflow.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return domain.ErrSessionExists
	}
	r.sessions[session.ID] = session
	return nil
}

// GetByID returns the live session with id
func (r *MemorySessionRepository) GetByID(ctx context.Context, id string) (*workflow.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete discards a session
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// DeleteIdle drops sessions last seen before cutoff
func (r *MemorySessionRepository) DeleteIdle(ctx context.Context, cutoff time.Time) []*workflow.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*workflow.Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			removed = append(removed, s)
		}
	}
	return removed
}

// Count returns the number of live sessions
func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
