package learning

import (
	"context"
	"errors"
	"fmt"

	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultRedisKey is used when RedisOptions.Key is empty.
const DefaultRedisKey = "booksearch:learning"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the snapshot as one msgpack value under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	key := opts.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Load(ctx context.Context) (search.LearningData, error) {
	var data search.LearningData
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return data, ErrNoSnapshot
	}
	if err != nil {
		return data, fmt.Errorf("get %s: %w", s.key, err)
	}
	if err := msgpack.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode learning snapshot %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, data search.LearningData) error {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode learning snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
