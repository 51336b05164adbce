package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	appErrors "talentloop/internal/errors"

	"github.com/redis/go-redis/v9"
)

const (
	redisKey         = "handoff"
	maxUpdateRetries = 5
)

// RedisStore keeps the handoff as a JSON value with a TTL, so several
// processes can share one interview flow
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore stores the record under <prefix>handoff
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: prefix + redisKey, ttl: ttl}
}

// Load returns the stored record. A missing key is an empty record and
// corrupt data is treated as a miss.
func (r *RedisStore) Load(ctx context.Context) (Handoff, error) {
	h, _, err := r.get(ctx, r.rdb)
	return h, err
}

func (r *RedisStore) get(ctx context.Context, c redis.Cmdable) (Handoff, bool, error) {
	var h Handoff

	s, err := c.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return h, false, nil
	}
	if err != nil {
		return h, false, appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to read handoff from Redis", err)
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		// data corrupt: treat as miss by deleting
		_ = r.rdb.Del(ctx, r.key).Err()
		return Handoff{}, false, nil
	}
	return h, true, nil
}

func (r *RedisStore) Save(ctx context.Context, h Handoff) error {
	b, err := r.encode(h)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, b, r.ttl).Err(); err != nil {
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to write handoff to Redis", err)
	}
	return nil
}

// Update applies fn inside an optimistic transaction on the key
func (r *RedisStore) Update(ctx context.Context, fn func(*Handoff) error) error {
	txf := func(tx *redis.Tx) error {
		h, _, err := r.get(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(&h); err != nil {
			return err
		}
		b, err := r.encode(h)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, b, r.ttl)
			return nil
		})
		return err
	}

	for range maxUpdateRetries {
		err := r.rdb.Watch(ctx, txf, r.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to update handoff in Redis", err)
	}
	return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Handoff update kept conflicting", redis.TxFailedErr)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return appErrors.NewIOError(appErrors.ErrCodeHandoffStore, "Failed to clear handoff in Redis", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) encode(h Handoff) ([]byte, error) {
	h.UpdatedAt = time.Now()
	b, err := json.Marshal(h)
	if err != nil {
		return nil, appErrors.NewInternalError(appErrors.ErrCodeHandoffStore, "Failed to encode handoff", err)
	}
	return b, nil
}
