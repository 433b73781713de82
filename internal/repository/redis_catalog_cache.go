package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/metrics"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	pkgredis "github.com/prohmpiriya/rail-booking/pkg/redis"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	catalogKeyPrefix = "rail:catalog:train:"
	catalogListKey   = "rail:catalog:trains"

	// DefaultCatalogCacheTTL bounds how stale a cached offering can be
	DefaultCatalogCacheTTL = 10 * time.Minute
)

// CacheClient is the subset of the Redis client used by the catalog cache
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedCatalogRepository is a read-through Redis cache in front of another
// CatalogRepository. Redis failures degrade to origin reads.
type CachedCatalogRepository struct {
	origin CatalogRepository
	cache  CacheClient
	ttl    time.Duration
}

// NewCachedCatalogRepository wraps origin with a Redis cache
func NewCachedCatalogRepository(origin CatalogRepository, cache CacheClient, ttl time.Duration) *CachedCatalogRepository {
	if ttl <= 0 {
		ttl = DefaultCatalogCacheTTL
	}
	return &CachedCatalogRepository{
		origin: origin,
		cache:  cache,
		ttl:    ttl,
	}
}

func trainKey(id string) string {
	return catalogKeyPrefix + id
}

// GetTrainByID reads the train from Redis, falling back to the origin on a miss
func (r *CachedCatalogRepository) GetTrainByID(ctx context.Context, id string) (*domain.TrainOffering, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.catalog.get_train")
	defer span.End()

	span.SetAttributes(attribute.String("train_id", id))

	var train domain.TrainOffering
	if r.readCache(ctx, trainKey(id), &train) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		span.SetStatus(codes.Ok, "")
		return &train, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	t, err := r.origin.GetTrainByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrTrainNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.writeCache(ctx, trainKey(id), t)
	span.SetStatus(codes.Ok, "")
	return t, nil
}

// ListTrains reads the catalog list from Redis, falling back to the origin on a miss
func (r *CachedCatalogRepository) ListTrains(ctx context.Context) ([]*domain.TrainOffering, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.catalog.list_trains")
	defer span.End()

	var trains []*domain.TrainOffering
	if r.readCache(ctx, catalogListKey, &trains) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		span.SetStatus(codes.Ok, "")
		return trains, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	trains, err := r.origin.ListTrains(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.writeCache(ctx, catalogListKey, trains)
	span.SetStatus(codes.Ok, "")
	return trains, nil
}

// Warm writes every train and the catalog list into Redis
func (r *CachedCatalogRepository) Warm(ctx context.Context, trains []*domain.TrainOffering) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.catalog.warm")
	defer span.End()

	for _, t := range trains {
		if err := r.set(ctx, trainKey(t.ID), t); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if err := r.set(ctx, catalogListKey, trains); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("count", len(trains)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Invalidate drops cached trains and the catalog list
func (r *CachedCatalogRepository) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, trainKey(id))
	}
	keys = append(keys, catalogListKey)

	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

func (r *CachedCatalogRepository) readCache(ctx context.Context, key string, dest interface{}) bool {
	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, pkgredis.Nil) {
			logger.Get().WarnContext(ctx, "catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.RecordCatalogCacheLookup(ctx, false)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		logger.Get().WarnContext(ctx, "catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		metrics.RecordCatalogCacheLookup(ctx, false)
		return false
	}

	metrics.RecordCatalogCacheLookup(ctx, true)
	return true
}

func (r *CachedCatalogRepository) writeCache(ctx context.Context, key string, v interface{}) {
	if err := r.set(ctx, key, v); err != nil {
		logger.Get().WarnContext(ctx, "catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedCatalogRepository) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode catalog entry: %w", err)
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}
