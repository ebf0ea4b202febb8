package repository

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"people-partner/internal/domain"
)

func TestNewStore_Drivers(t *testing.T) {
	s, err := NewStore(DriverMemory)
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = NewStore("")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(DriverSQLite, WithSQLitePath(filepath.Join(t.TempDir(), "s.db")))
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	s, err = NewStore(DriverRedis, WithRedisClient(client), WithTTL(time.Hour))
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, s)
	require.Equal(t, time.Hour, s.(*RedisStore).ttl)
	_ = s.Close()

	s, err = NewStore(DriverDynamoDB, WithDynamoDB(&fakeDynamo{}, "sessions"))
	require.NoError(t, err)
	require.IsType(t, &DynamoDBStore{}, s)
}

func TestNewStore_MissingConfig(t *testing.T) {
	_, err := NewStore(DriverSQLite)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(DriverRedis)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(DriverDynamoDB, WithDynamoDB(&fakeDynamo{}, ""))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewStore_UnknownDriver(t *testing.T) {
	_, err := NewStore("postgres")
	require.ErrorIs(t, err, ErrInvalidDriver)
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

func TestRedisKey(t *testing.T) {
	require.Equal(t, "people-partner:session:abc", redisKey("abc"))
}

func TestRedisTurnCodec(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := pair("q", "a", now)
	vals, err := encodeTurns(in)
	require.NoError(t, err)
	require.Len(t, vals, 2)

	strs := make([]string, 0, len(vals))
	for _, v := range vals {
		strs = append(strs, v.(string))
	}
	out, err := decodeTurns(strs)
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = decodeTurns([]string{"{not json"})
	require.Error(t, err)
}

func TestNewRedisStore_NegativeTTLDisablesExpiry(t *testing.T) {
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), -time.Second)
	defer s.Close()
	require.Zero(t, s.ttl)
	removed, err := s.Prune(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Zero(t, removed)
}

// TestRedisStore_Live runs against a real server when REDIS_ADDR is set.
func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	s := NewRedisStore(client, time.Minute)
	defer s.Close()

	id := "test-" + time.Now().Format("150405.000000000")
	defer client.Del(ctx, redisKey(id))

	for _, p := range [][2]string{{"q0", "a0"}, {"q1", "a1"}, {"q2", "a2"}} {
		require.NoError(t, s.Append(ctx, id, pair(p[0], p[1], time.Now())...))
	}
	turns, err := s.History(ctx, id, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"q1", "a1", "q2", "a2"}, contents(turns))

	ttl, err := client.TTL(ctx, redisKey(id)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

// ---------------------------------------------------------------------------
// Pruner
// ---------------------------------------------------------------------------

func TestStartPruner_RemovesIdleSessionsUntilCancelled(t *testing.T) {
	store := NewMemoryStore()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	require.NoError(t, store.Append(context.Background(), "idle", domain.NewUserTurn("q", "", clock)))
	store.now = func() time.Time { return clock.Add(time.Hour) }

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := StartPruner(ctx, store, time.Minute, 5*time.Millisecond, logger)

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
	require.Contains(t, logs.String(), "session pruner started")
}
