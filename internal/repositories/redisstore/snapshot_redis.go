// Package redisstore mirrors session snapshots into redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/cache"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
)

type SnapshotRedis struct {
	cacheManager *cache.CacheManager
	ttl          time.Duration
}

func NewSnapshotRedis(cm *cache.CacheManager, ttl time.Duration) *SnapshotRedis {
	if ttl <= 0 {
		ttl = cache.SnapshotCacheConfig.TTL
	}
	return &SnapshotRedis{cacheManager: cm, ttl: ttl}
}

func (r *SnapshotRedis) Save(ctx context.Context, state *models.SessionState) error {
	if err := r.cacheManager.Snapshot.Set(ctx, state.SessionID, state, r.ttl); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if state.CandidateID != "" {
		if err := r.cacheManager.Candidate.SetString(ctx, state.CandidateID, state.SessionID, r.ttl); err != nil {
			return fmt.Errorf("failed to index candidate: %w", err)
		}
	}
	return nil
}

func (r *SnapshotRedis) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	var state models.SessionState
	if err := r.cacheManager.Snapshot.Get(ctx, sessionID, &state); err != nil {
		if errors.Is(err, cache.ErrCacheNotFound) {
			return nil, repositories.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if state.Exam.Answers == nil {
		state.Exam.Answers = map[int]string{}
	}
	return &state, nil
}

func (r *SnapshotRedis) FindByCandidate(ctx context.Context, candidateID string) (*models.SessionState, error) {
	sessionID, err := r.cacheManager.Candidate.GetString(ctx, candidateID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheNotFound) {
			return nil, repositories.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to look up candidate: %w", err)
	}
	return r.Get(ctx, sessionID)
}

func (r *SnapshotRedis) Delete(ctx context.Context, sessionID string) error {
	state, err := r.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, repositories.ErrSnapshotNotFound) {
		return err
	}
	candidateID := ""
	if state != nil {
		candidateID = state.CandidateID
	}
	cache.InvalidateSessionCache(ctx, r.cacheManager, sessionID, candidateID)
	return nil
}

func (r *SnapshotRedis) List(ctx context.Context) ([]string, error) {
	ids, err := r.cacheManager.Snapshot.Keys(ctx, "*")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
