package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyPending is the value a claimed key holds until the checkout
// that claimed it either completes or releases it.
const IdempotencyPending = "pending"

// IdempotencyStore remembers which order a client-supplied checkout key
// produced. Only the request that wins Claim runs the checkout; it then
// records the order with Complete or frees the key with Release.
type IdempotencyStore interface {
	// Claim reserves key. It reports false when the key is already claimed
	// or completed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the recorded order id, IdempotencyPending while a checkout
	// holds the key, or "" for an unknown key.
	Get(ctx context.Context, key string) (string, error)
	Complete(ctx context.Context, key, orderID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (r *RedisIdempotencyStore) getIdemKey(key string) string {
	return "idem:checkout:" + key
}

func (r *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.getIdemKey(key), IdempotencyPending, ttl).Result()
}

func (r *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.getIdemKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Complete overwrites the pending marker with the order id.
func (r *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.getIdemKey(key), orderID, ttl).Err()
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.getIdemKey(key)).Err()
}
