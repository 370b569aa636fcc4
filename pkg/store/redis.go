package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/observability"
)

// RedisStore keeps records in Redis lists, one list per split. Positional
// reads map onto LINDEX, so the access pattern matches the file backend
// exactly. Metadata documents are stored as plain JSON strings.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures a Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces all keys, e.g. "patchy:mnist". Required so two
	// datasets can share one Redis instance.
	Prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "redis store requires a key prefix")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStore, "connect to redis")
	}
	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) recordsKey(split string) string {
	return s.prefix + ":records:" + split
}

func (s *RedisStore) infoKey(split string) string {
	return s.prefix + ":info:" + split
}

func (s *RedisStore) descriptorKey() string {
	return s.prefix + ":descriptor"
}

func (s *RedisStore) Append(ctx context.Context, split string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode record")
	}
	if err := s.client.RPush(ctx, s.recordsKey(split), data).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "append record")
	}
	observability.Store().OnAppend(ctx, split, len(data))
	return nil
}

func (s *RedisStore) Read(ctx context.Context, split string, index int) (*Record, error) {
	data, err := s.client.LIndex(ctx, s.recordsKey(split), int64(index)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeRecordNotFound,
			"record %d not in split %q", index, split)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read record")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "decode record")
	}
	observability.Store().OnRead(ctx, split, index)
	return &rec, nil
}

func (s *RedisStore) Count(ctx context.Context, split string) (int, error) {
	n, err := s.client.LLen(ctx, s.recordsKey(split)).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStore, "count records")
	}
	return int(n), nil
}

func (s *RedisStore) SaveInfo(ctx context.Context, split string, info SplitInfo) error {
	return s.setJSON(ctx, s.infoKey(split), info)
}

func (s *RedisStore) LoadInfo(ctx context.Context, split string) (SplitInfo, error) {
	var info SplitInfo
	err := s.getJSON(ctx, s.infoKey(split), &info, fmt.Sprintf("info for split %q", split))
	return info, err
}

func (s *RedisStore) Reset(ctx context.Context, split string) error {
	if err := s.client.Del(ctx, s.recordsKey(split), s.infoKey(split)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "reset split")
	}
	return nil
}

func (s *RedisStore) SaveDescriptor(ctx context.Context, d Descriptor) error {
	return s.setJSON(ctx, s.descriptorKey(), d)
}

func (s *RedisStore) LoadDescriptor(ctx context.Context) (Descriptor, error) {
	var d Descriptor
	err := s.getJSON(ctx, s.descriptorKey(), &d, "descriptor")
	return d, err
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode metadata")
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write metadata")
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any, what string) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return notFound(what)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "read metadata")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "decode metadata")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
