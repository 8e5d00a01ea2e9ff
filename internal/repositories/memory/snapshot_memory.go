// Package memory keeps session snapshots in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
)

type SnapshotMemory struct {
	mu          sync.RWMutex
	snapshots   map[string]models.SessionState
	byCandidate map[string]string
}

func NewSnapshotMemory() *SnapshotMemory {
	return &SnapshotMemory{
		snapshots:   make(map[string]models.SessionState),
		byCandidate: make(map[string]string),
	}
}

// Save stores a copy of state. A snapshot older than the stored one is
// ignored.
func (m *SnapshotMemory) Save(ctx context.Context, state *models.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.snapshots[state.SessionID]; ok {
		if prev.Version > state.Version {
			return nil
		}
		if prev.CandidateID != "" && prev.CandidateID != state.CandidateID {
			delete(m.byCandidate, prev.CandidateID)
		}
	}
	m.snapshots[state.SessionID] = state.Clone()
	if state.CandidateID != "" {
		m.byCandidate[state.CandidateID] = state.SessionID
	}
	return nil
}

func (m *SnapshotMemory) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.snapshots[sessionID]
	if !ok {
		return nil, repositories.ErrSnapshotNotFound
	}
	out := state.Clone()
	return &out, nil
}

func (m *SnapshotMemory) FindByCandidate(ctx context.Context, candidateID string) (*models.SessionState, error) {
	m.mu.RLock()
	sessionID, ok := m.byCandidate[candidateID]
	m.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrSnapshotNotFound
	}
	return m.Get(ctx, sessionID)
}

func (m *SnapshotMemory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.snapshots[sessionID]; ok && state.CandidateID != "" {
		if m.byCandidate[state.CandidateID] == sessionID {
			delete(m.byCandidate, state.CandidateID)
		}
	}
	delete(m.snapshots, sessionID)
	return nil
}

func (m *SnapshotMemory) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Repository is the in-memory Repository used when no redis is configured.
type Repository struct {
	snapshot *SnapshotMemory
}

func NewRepository() *Repository {
	return &Repository{snapshot: NewSnapshotMemory()}
}

func (r *Repository) Snapshot() repositories.SnapshotRepository { return r.snapshot }
func (r *Repository) Ping(ctx context.Context) error             { return nil }
func (r *Repository) Close() error                               { return nil }
