package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Cache key layout shared by the read models. The availability version counter sits
// outside availabilityKeyAll so pattern deletes never reset it.
const (
	seatSummaryKeyPattern  = "seats:%s"
	availabilityKeyPattern = "availability:v%d:%d:%d"
	availabilityKeyAll     = "availability:*"
	availabilityVersionKey = "availability-version"
)

func seatSummaryKey(classID string) string {
	return fmt.Sprintf(seatSummaryKeyPattern, classID)
}

func availabilityKey(version int64, start, end time.Time) string {
	return fmt.Sprintf(availabilityKeyPattern, version, start.UnixNano(), end.UnixNano())
}

// CacheService wraps the cache repository with metrics and a feature switch.
// A nil *CacheService is valid and behaves as a disabled cache.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern. Failures are logged only.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) {
	if !s.Enabled() {
		return
	}
	for _, pattern := range patterns {
		if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// Version reads a counter maintained by Bump. ok is false when the cache is disabled or the
// counter cannot be read, in which case callers must not cache.
func (s *CacheService) Version(ctx context.Context, key string) (version int64, ok bool) {
	if !s.Enabled() {
		return 0, false
	}
	if err := s.repo.Get(ctx, key, &version); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return 0, true
		}
		s.logger.Warn("cache version read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return version, true
}

// Bump increments a version counter. Entries keyed by the previous version are never read again.
func (s *CacheService) Bump(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	if _, err := s.repo.Incr(ctx, key); err != nil {
		s.logger.Warn("cache version bump failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateAvailability retires every cached free-classroom search. A search still reading the
// database when this runs stores its result under the old version, so it cannot be served stale.
func (s *CacheService) InvalidateAvailability(ctx context.Context) {
	s.Bump(ctx, availabilityVersionKey)
	s.Invalidate(ctx, availabilityKeyAll)
}
