// Package repository provides session history storage for the chat proxy.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"people-partner/internal/domain"
)

// Store holds the ordered turn sequence of every session.
type Store interface {
	// History returns the last limit turns of a session in insertion order.
	// A limit <= 0 returns every turn. Unknown sessions yield no turns.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// Append adds turns to the end of a session, creating it if needed. The
	// turns of one call are stored contiguously and in order.
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error

	// Prune removes sessions with no activity for longer than idleFor and
	// returns how many were removed. Stores that expire keys natively
	// return 0.
	Prune(ctx context.Context, idleFor time.Duration) (int, error)

	Close() error
}

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverRedis    Driver = "redis"
	DriverDynamoDB Driver = "dynamodb"
)

var (
	ErrInvalidConfig = errors.New("repository: invalid store configuration")
	ErrInvalidDriver = errors.New("repository: invalid store driver")
)

// StoreOption configures NewStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	sqlitePath  string
	redisClient *redis.Client
	dynamoAPI   dynamodbAPI
	dynamoTable string
	ttl         time.Duration
}

func WithSQLitePath(path string) StoreOption {
	return func(c *storeConfig) {
		c.sqlitePath = path
	}
}

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

func WithDynamoDB(api dynamodbAPI, table string) StoreOption {
	return func(c *storeConfig) {
		c.dynamoAPI = api
		c.dynamoTable = table
	}
}

// WithTTL sets the native expiry for drivers that support it (redis, dynamodb).
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// NewStore creates a Store for the given driver.
func NewStore(driver Driver, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil

	case DriverSQLite:
		if cfg.sqlitePath == "" {
			return nil, ErrInvalidConfig
		}
		return NewSQLiteStore(cfg.sqlitePath)

	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, cfg.ttl), nil

	case DriverDynamoDB:
		if cfg.dynamoAPI == nil || cfg.dynamoTable == "" {
			return nil, ErrInvalidConfig
		}
		return NewDynamoDBStore(cfg.dynamoAPI, cfg.dynamoTable, cfg.ttl)

	default:
		return nil, ErrInvalidDriver
	}
}

// tail returns the last limit turns, or all of them when limit <= 0.
func tail(turns []domain.Turn, limit int) []domain.Turn {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
