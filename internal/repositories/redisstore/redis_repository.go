package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/accessible-exam-service/internal/cache"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories/memory"
)

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	RedisClient *redis.Client
	SnapshotTTL time.Duration
}

// RedisRepository implements repositories.Repository on top of redis
type RedisRepository struct {
	client       *redis.Client
	cacheManager *cache.CacheManager
	snapshot     repositories.SnapshotRepository
}

func NewRedisRepository(config RepositoryConfig) *RedisRepository {
	cm := cache.NewCacheManager(config.RedisClient)
	return &RedisRepository{
		client:       config.RedisClient,
		cacheManager: cm,
		snapshot:     NewSnapshotRedis(cm, config.SnapshotTTL),
	}
}

func (r *RedisRepository) Snapshot() repositories.SnapshotRepository {
	return r.snapshot
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.cacheManager.HealthCheck(ctx)
}

// Close purges mirrored sessions; the client itself is owned by main.
func (r *RedisRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cache.PurgeSessions(ctx, r.cacheManager)
	return nil
}

type repositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager picks the redis mirror when a client is configured
// and the in-memory mirror otherwise.
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &repositoryManager{config: config}
}

func (m *repositoryManager) Initialize() error {
	if m.config.RedisClient == nil {
		m.repo = memory.NewRepository()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := NewRedisRepository(m.config)
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis repository: %w", err)
	}
	m.repo = repo
	return nil
}

func (m *repositoryManager) GetRepository() repositories.Repository {
	return m.repo
}

func (m *repositoryManager) HealthCheck(ctx context.Context) error {
	if m.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return m.repo.Ping(ctx)
}

func (m *repositoryManager) Shutdown(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.Close()
}
