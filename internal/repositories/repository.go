package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

var ErrSnapshotNotFound = errors.New("session snapshot not found")

// SnapshotRepository mirrors the latest committed state of each session.
// The live session stays authoritative; the mirror serves readers and
// survives nothing beyond its TTL.
type SnapshotRepository interface {
	Save(ctx context.Context, state *models.SessionState) error
	Get(ctx context.Context, sessionID string) (*models.SessionState, error)
	FindByCandidate(ctx context.Context, candidateID string) (*models.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Repository groups the storage backends
type Repository interface {
	Snapshot() SnapshotRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
