package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "frames:sessions"

// RedisBackend stores one JSON value per session in a hash and keeps insertion
// order in a sorted set scored by Seq.
type RedisBackend struct {
	rdb   *redis.Client
	key   string
	owned bool
}

// NewRedisBackend uses an existing client; Close leaves it open.
func NewRedisBackend(rdb *redis.Client, key string) *RedisBackend {
	if strings.TrimSpace(key) == "" {
		key = defaultRedisKey
	}
	return &RedisBackend{rdb: rdb, key: key}
}

// OpenRedisBackend dials rawURL and pings it.
func OpenRedisBackend(ctx context.Context, rawURL, key string) (*RedisBackend, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis persistence")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	b := NewRedisBackend(rdb, key)
	b.owned = true
	return b, nil
}

func (b *RedisBackend) indexKey() string { return b.key + ":order" }

func (b *RedisBackend) Load(ctx context.Context) ([]Record, error) {
	ids, err := b.rdb.ZRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := b.rdb.HMGet(ctx, b.key, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *RedisBackend) Save(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	pipe := b.rdb.TxPipeline()
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", rec.ID, err)
		}
		pipe.HSet(ctx, b.key, rec.ID, raw)
		pipe.ZAdd(ctx, b.indexKey(), redis.Z{Score: float64(rec.Seq), Member: rec.ID})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Close() error {
	if b == nil || b.rdb == nil || !b.owned {
		return nil
	}
	return b.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
