package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"poolguard/internal/models"
)

// CacheRepository is the cache-aside layer for scores and decisions.
type CacheRepository interface {
	GetResult(ctx context.Context, userID uint) (*models.CredibilityResult, error)
	SetResult(ctx context.Context, res models.CredibilityResult, expiration time.Duration) error
	GetFloat64(ctx context.Context, key string) (float64, error)
	SetFloat64(ctx context.Context, key string, value float64, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteMany(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
	Close() error
}

type redisCacheRepository struct {
	client *redis.Client
}

// NewRedisCacheRepository wraps a redis client as the engine cache.
func NewRedisCacheRepository(client *redis.Client) CacheRepository {
	return &redisCacheRepository{client: client}
}

// NewRedisClient dials redis with the standard engine options.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *redisCacheRepository) GetResult(ctx context.Context, userID uint) (*models.CredibilityResult, error) {
	val, err := r.client.Get(ctx, ResultKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var res models.CredibilityResult
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *redisCacheRepository) SetResult(ctx context.Context, res models.CredibilityResult, expiration time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, ResultKey(res.UserID), data, expiration).Err()
}

func (r *redisCacheRepository) GetFloat64(ctx context.Context, key string) (float64, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, err
	}
	return strconv.ParseFloat(val, 64)
}

func (r *redisCacheRepository) SetFloat64(ctx context.Context, key string, value float64, expiration time.Duration) error {
	return r.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), expiration).Err()
}

func (r *redisCacheRepository) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheRepository) SetString(ctx context.Context, key, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *redisCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheRepository) DeleteMany(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *redisCacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheRepository) Close() error {
	return r.client.Close()
}

// Cache keys.

// ResultKey is the cache key for a user's fused credibility result.
func ResultKey(userID uint) string {
	return "credibility:result:" + strconv.FormatUint(uint64(userID), 10)
}

// GraphScoreKey is the cache key for a user's graph risk score, refreshed by
// the periodic collusion sweep.
func GraphScoreKey(userID uint) string {
	return "collusion:graphscore:" + strconv.FormatUint(uint64(userID), 10)
}

// FundStatusKey is the cache key for a fund's derived status.
func FundStatusKey(fundID uint) string {
	return "escrow:status:" + strconv.FormatUint(uint64(fundID), 10)
}
