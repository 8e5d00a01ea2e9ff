package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache drops everything mirrored for one session.
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, sessionID, candidateID string) {
	SafeDelete(ctx, cm.Snapshot, sessionID)
	if candidateID != "" {
		SafeDelete(ctx, cm.Candidate, candidateID)
	}
}

// PurgeSessions drops every mirrored session, used on shutdown.
func PurgeSessions(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Snapshot, "*")
	SafeInvalidatePattern(ctx, cm.Candidate, "*")
}
