package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// AnalyticsCachePattern matches every cached aggregation.
const AnalyticsCachePattern = "analytics:*"

const fallbackCacheTTL = 10 * time.Minute

var errLoadAborted = errors.New("cache: shared load aborted")

// CacheRepository is the byte-level store behind CacheService.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is a best-effort read-through cache for aggregates. A failing
// backend degrades to recomputation and never surfaces to callers of Remember.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	on      bool

	mu       sync.Mutex
	inflight map[string]*pendingLoad
}

type pendingLoad struct {
	done  chan struct{}
	value interface{}
	err   error
}

// NewCacheService wires a repository into the analytics read path.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = fallbackCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:     repo,
		metrics:  metrics,
		ttl:      ttl,
		logger:   logger.With(zap.String("component", "cache")),
		on:       enabled,
		inflight: make(map[string]*pendingLoad),
	}
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.on && s.repo != nil
}

// Get decodes the entry at key into dest and reports whether it was found.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	began := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(began))
	switch {
	case err == nil:
		return true
	case errors.Is(err, appErrors.ErrCacheMiss):
	default:
		s.logger.Warn("cache read degraded to miss", zap.String("key", key), zap.Error(err))
	}
	return false
}

// Set writes value under key. A non-positive ttl falls back to the configured one.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	began := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(began))
	if err != nil {
		s.logger.Warn("cache write dropped", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
	}
}

// Invalidate deletes every entry matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	s.logger.Debug("cache invalidated", zap.String("pattern", pattern))
	return nil
}

// Remember returns the cached value for key, or computes it with load and
// stores the result. Concurrent misses on the same key share one load call.
// The bool result reports a cache hit.
func Remember[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var out T
	if s.Get(ctx, key, &out) {
		return out, true, nil
	}
	if !s.Enabled() {
		out, err := load(ctx)
		return out, false, err
	}

	value, err := s.share(ctx, key, func(ctx context.Context) (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return value.(T), false, nil
}

func (s *CacheService) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	if p, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-p.done:
			return p.value, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := &pendingLoad{done: make(chan struct{}), err: errLoadAborted}
	s.inflight[key] = p
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		close(p.done)
	}()
	p.value, p.err = fn(ctx)
	return p.value, p.err
}
