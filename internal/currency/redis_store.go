package currency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRateStore struct {
	redis *redis.Client
}

func NewRedisRateStore(redisClient *redis.Client) *RedisRateStore {
	return &RedisRateStore{redis: redisClient}
}

func (r *RedisRateStore) GetRate(ctx context.Context, from, to string) (float64, error) {
	data, err := r.redis.Get(ctx, rateKey(from, to)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrRateNotFound
		}
		return 0, fmt.Errorf("redis get rate: %w", err)
	}

	rate, err := strconv.ParseFloat(data, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cached rate %q: %w", data, err)
	}
	return rate, nil
}

func (r *RedisRateStore) SetRate(ctx context.Context, from, to string, rate float64, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	value := strconv.FormatFloat(rate, 'g', -1, 64)
	if err := r.redis.Set(ctx, rateKey(from, to), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set rate: %w", err)
	}
	return nil
}

func rateKey(from, to string) string {
	return fmt.Sprintf("fxrate:%s:%s", strings.ToUpper(from), strings.ToUpper(to))
}
