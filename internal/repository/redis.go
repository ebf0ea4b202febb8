package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"people-partner/internal/domain"
)

const redisKeyPrefix = "people-partner:session:"

// RedisStore keeps each session as a Redis list of JSON-encoded turns.
type RedisStore struct {
	client *redis.Client
	// ttl is refreshed on every append. Zero keeps sessions forever.
	ttl time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	vals, err := s.client.LRange(ctx, redisKey(sessionID), start, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: redis lrange: %w", err)
	}
	return decodeTurns(vals)
}

// Append pushes all turns and refreshes expiry in one MULTI/EXEC block.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	vals, err := encodeTurns(turns)
	if err != nil {
		return err
	}

	key := redisKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, vals...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: redis append: %w", err)
	}
	return nil
}

// Prune is a no-op; Redis expires idle sessions through key TTLs.
func (s *RedisStore) Prune(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func encodeTurns(turns []domain.Turn) ([]interface{}, error) {
	vals := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("repository: encode turn: %w", err)
		}
		vals = append(vals, string(b))
	}
	return vals, nil
}

func decodeTurns(vals []string) ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, len(vals))
	for _, v := range vals {
		var t domain.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("repository: decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
