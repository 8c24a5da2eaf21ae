// Package redis keeps usage windows in a shared Redis instance. The whole
// prune-count-append decision runs as one Lua script, so it is atomic across
// every server process pointing at the same Redis.
package redis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clipshare/be/pkg/repositories/usage"
)

//go:embed sliding_window.lua
var slidingWindowScript string

const keyPrefix = "usage:"

type RedisStore struct {
	client    *redis.Client
	scriptSHA string
	now       func() time.Time
}

var _ usage.Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	sha, err := client.ScriptLoad(ctx, slidingWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("load sliding window script: %w", err)
	}
	return &RedisStore{client: client, scriptSHA: sha, now: time.Now}, nil
}

// SetClock overrides the time source. Test use only.
func (s *RedisStore) SetClock(now func() time.Time) { s.now = now }

func (s *RedisStore) Check(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	return s.eval(ctx, key, limit, window, false)
}

func (s *RedisStore) Acquire(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	return s.eval(ctx, key, limit, window, true)
}

func (s *RedisStore) eval(ctx context.Context, key string, limit int, window time.Duration, acquire bool) (usage.Decision, error) {
	nowMs := s.now().UnixMilli()
	acquireFlag := 0
	if acquire {
		acquireFlag = 1
	}
	// Member must be unique even when two actions land on the same
	// millisecond, or ZADD would collapse them into one entry.
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	res, err := s.client.EvalSha(ctx, s.scriptSHA, []string{keyPrefix + key},
		nowMs, window.Milliseconds(), limit, acquireFlag, member).Result()
	if err != nil {
		return usage.Decision{}, err
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return usage.Decision{}, errors.New("unexpected sliding window script reply")
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	retryMs, _ := values[2].(int64)

	return usage.Decision{
		Allowed:    allowed == 1,
		Remaining:  int(remaining),
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}
