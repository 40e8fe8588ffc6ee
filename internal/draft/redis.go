package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigmove/backend/internal/models"
)

const storageKeyPrefix = "order-storage"

type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPersister(addr string, ttl time.Duration) *RedisPersister {
	return &RedisPersister{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func StorageKey(session string) string {
	return fmt.Sprintf("%s:%s", storageKeyPrefix, session)
}

func (r *RedisPersister) Save(ctx context.Context, key string, d models.OrderDraft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, StorageKey(key), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	return nil
}

func (r *RedisPersister) Load(ctx context.Context, key string) (*models.OrderDraft, error) {
	b, err := r.client.Get(ctx, StorageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", key, err)
	}
	var d models.OrderDraft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", key, err)
	}
	return &d, nil
}

func (r *RedisPersister) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, StorageKey(key)).Err()
}

func (r *RedisPersister) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisPersister) Close() error {
	return r.client.Close()
}
