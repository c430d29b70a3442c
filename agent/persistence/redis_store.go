package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/BaSui01/pandemonium/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTranscriptStore stores each transcript as a JSON string and keeps a
// sorted-set index scored by creation time.
// Suitable for distributed deployments.
type RedisTranscriptStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisTranscriptStore connects to Redis and verifies the connection.
func NewRedisTranscriptStore(config StoreConfig, logger *zap.Logger) (*RedisTranscriptStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	}
	if config.Redis.TLS {
		host, _, err := net.SplitHostPort(config.Redis.Addr)
		if err != nil {
			host = config.Redis.Addr
		}
		opts.TLSConfig = tlsutil.ServerTLSConfig(host)
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "pandemonium:"
	}

	return &RedisTranscriptStore{
		client:    client,
		keyPrefix: keyPrefix + "transcript:",
		ttl:       config.Redis.TTL,
		logger:    logger.With(zap.String("component", "transcript_redis_store")),
	}, nil
}

// dataKey returns the Redis key for a transcript
func (s *RedisTranscriptStore) dataKey(id string) string {
	return s.keyPrefix + "data:" + id
}

// indexKey returns the sorted set of transcript IDs scored by creation time
func (s *RedisTranscriptStore) indexKey() string {
	return s.keyPrefix + "index"
}

func (s *RedisTranscriptStore) Save(ctx context.Context, t *Transcript) error {
	rec, err := prepare(t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(rec.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisTranscriptStore) Load(ctx context.Context, id string) (*Transcript, error) {
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &t, nil
}

// List 从索引倒序分页读取，直到凑满 limit 条仍存在的记录或索引耗尽。
// 已过期的条目会从索引中清除。
func (s *RedisTranscriptStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	page := int64(limit)
	if limit <= 0 {
		page = -1
	}

	var out []*Transcript
	var stale []any
	for start := int64(0); ; start += page {
		stop := int64(-1)
		if page > 0 {
			stop = start + page - 1
		}
		ids, err := s.client.ZRevRange(ctx, s.indexKey(), start, stop).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			t, err := s.Load(ctx, id)
			if errors.Is(err, ErrNotFound) {
				stale = append(stale, id)
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		if page < 0 || int64(len(ids)) < page || len(out) == limit {
			break
		}
	}

	if len(stale) > 0 {
		// 索引清理失败不影响本次结果，下次 List 会重试。
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			s.logger.Warn("failed to prune expired index entries",
				zap.Int("count", len(stale)),
				zap.Error(err))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RedisTranscriptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisTranscriptStore) Close() error {
	return s.client.Close()
}
