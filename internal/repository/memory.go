package repository

import (
	"context"
	"sync"

	"rentdapp/internal/models"
)

type MemorySessionRepository struct {
	mu      sync.RWMutex
	session *models.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{}
}

func (r *MemorySessionRepository) Save(_ context.Context, s models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	if s.User != nil {
		u := *s.User
		cp.User = &u
	}
	r.session = &cp
	return nil
}

func (r *MemorySessionRepository) Load(_ context.Context) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return nil, nil
	}
	cp := *r.session
	return &cp, nil
}

func (r *MemorySessionRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()
	return nil
}
