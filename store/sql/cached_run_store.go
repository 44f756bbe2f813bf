package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-dirsync/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const runCacheKeyPrefix = "go-dirsync::sync_run::v1"

// CachedRunStore layers read-through caching over a RunStore. Single-run
// reads hit the cache; writes invalidate the affected key. Listing always
// goes to the base store.
type CachedRunStore struct {
	base  core.RunStore
	cache repositorycache.CacheService
}

func NewCachedRunStore(base core.RunStore, cacheService repositorycache.CacheService) (*CachedRunStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base run store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: run cache service is required")
	}
	return &CachedRunStore{base: base, cache: cacheService}, nil
}

// RunCacheKey returns the deterministic cache key for a run read:
// go-dirsync::sync_run::v1::<run_id> with the id URL-path escaped.
func RunCacheKey(runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", fmt.Errorf("sqlstore: run id is required")
	}
	return runCacheKeyPrefix + "::" + url.PathEscape(runID), nil
}

func (s *CachedRunStore) Create(ctx context.Context, run core.SyncRun) (core.SyncRun, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	created, err := s.base.Create(ctx, run)
	if err != nil {
		return core.SyncRun{}, err
	}
	if err := s.invalidate(ctx, created.ID); err != nil {
		return core.SyncRun{}, err
	}
	return created, nil
}

func (s *CachedRunStore) Complete(ctx context.Context, run core.SyncRun) (core.SyncRun, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	completed, err := s.base.Complete(ctx, run)
	if err != nil {
		return core.SyncRun{}, err
	}
	if err := s.invalidate(ctx, completed.ID); err != nil {
		return core.SyncRun{}, err
	}
	return completed, nil
}

func (s *CachedRunStore) Get(ctx context.Context, id string) (core.SyncRun, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	cacheKey, err := RunCacheKey(id)
	if err != nil {
		return core.SyncRun{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.SyncRun, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedRunStore) List(ctx context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	return s.base.List(ctx, filter)
}

func (s *CachedRunStore) invalidate(ctx context.Context, runID string) error {
	cacheKey, err := RunCacheKey(runID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
