package repository

import (
	"context"
	"sync"

	"github.com/tieubaoca/contract-analyzer/types"
)

// SessionRepo is the chat session registry. Sessions reference jobs by id
// only; resolving the job stays the caller's problem.
type SessionRepo interface {
	Save(ctx context.Context, session *types.ChatSession) error
	Get(ctx context.Context, sessionID string) (*types.ChatSession, error)
	Update(ctx context.Context, session *types.ChatSession) error
}

// memorySessionRepo stores snapshots, same contract as the job registry: the
// stored record never aliases a caller's pointer.
type memorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*types.ChatSession
}

func NewMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*types.ChatSession)}
}

func (r *memorySessionRepo) Save(ctx context.Context, session *types.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID] = session.Clone()
	return nil
}

func (r *memorySessionRepo) Get(ctx context.Context, sessionID string) (*types.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return session.Clone(), nil
}

func (r *memorySessionRepo) Update(ctx context.Context, session *types.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; !ok {
		return ErrNotFound
	}
	r.sessions[session.SessionID] = session.Clone()
	return nil
}

// Clear drops every record. For tests.
func (r *memorySessionRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*types.ChatSession)
}
