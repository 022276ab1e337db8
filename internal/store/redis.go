package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rendis/flowcanvas/pkg/schema"
)

const defaultRedisPrefix = "flowcanvas:draft:"

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix for drafts.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// RedisStore keeps each draft as a JSON value and indexes ids in a sorted
// set scored by update time (milliseconds).
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Migrate checks connectivity; Redis needs no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeError("ping redis", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) SaveDraft(ctx context.Context, d *Draft) error {
	if err := prepareDraft(d, nowUTC()); err != nil {
		return err
	}

	existing, err := s.GetDraft(ctx, d.ID)
	switch {
	case err == nil:
		d.CreatedAt = existing.CreatedAt
	case !schema.IsNotFound(err):
		return err
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(d.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(d.UpdatedAt.UnixMilli()),
		Member: d.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return storeError("save draft", err)
	}
	return nil
}

func (s *RedisStore) GetDraft(ctx context.Context, id string) (*Draft, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storeNotFound("draft", id)
	}
	if err != nil {
		return nil, storeError("get draft", err)
	}
	var d Draft
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *RedisStore) ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, storeError("list drafts", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeError("list drafts", err)
	}

	var out []*Draft
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Indexed but gone: drop the stale index entry.
			s.client.ZRem(ctx, s.indexKey(), ids[i])
			continue
		}
		var d Draft
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("unmarshal draft %s: %w", ids[i], err)
		}
		if filter.match(&d) {
			out = append(out, &d)
		}
	}
	sortDrafts(out)
	return applyLimit(out, filter.Limit), nil
}

func (s *RedisStore) DeleteDraft(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeError("delete draft", err)
	}
	if del.Val() == 0 {
		return storeNotFound("draft", id)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
