package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
)

// MemoryStore はプロセス内に保存する Store です。TTL を過ぎたスナップショットは自動で消えます。
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore は MemoryStore を生成します。ttl が 0 以下なら期限なしで保持します。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup), ttl: ttl}
}

func (s *MemoryStore) Save(ctx context.Context, id string, snap orchestrator.Snapshot) error {
	s.cache.Set(id, snap, s.ttl)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (orchestrator.Snapshot, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return orchestrator.Snapshot{}, ErrNotFound
	}
	snap, ok := v.(orchestrator.Snapshot)
	if !ok {
		return orchestrator.Snapshot{}, ErrNotFound
	}
	return snap, nil
}
