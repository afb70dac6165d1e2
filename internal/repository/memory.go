package repository

import (
	"context"
	"sync"
	"time"

	"clinicbot/internal/models"
)

type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

type memoryState struct {
	session   *models.Session
	expiresAt time.Time
}

func (r *MemoryStateRepository) GetState(ctx context.Context, sessionID string) (*models.Session, error) {
	val, ok := r.states.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryState)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.states.Delete(sessionID)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, session *models.Session) error {
	r.states.Store(session.ID, &memoryState{
		session:   session,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, sessionID string) error {
	r.states.Delete(sessionID)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, _ := r.rateLimits.LoadOrStore(sessionID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
