package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/walkingday-ai/walkbot/internal/model"
)

const (
	keyPrefix = "walkbot:user:"

	// txRetries bounds the optimistic WATCH retry loop on contended keys.
	txRetries = 5
)

// RedisStore is a Store backed by Redis. Profiles and quotas survive process
// restarts; atomicity of read-modify-write comes from WATCH-based optimistic
// transactions on the single key involved.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at the given URL and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping is a readiness check for the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func stateKey(userID model.UserID) string {
	return fmt.Sprintf("%s%d:state", keyPrefix, userID)
}

func profileKey(userID model.UserID) string {
	return fmt.Sprintf("%s%d:profile", keyPrefix, userID)
}

func quotaKey(userID model.UserID) string {
	return fmt.Sprintf("%s%d:quota", keyPrefix, userID)
}

// State returns the user's conversation state, StateIdle if absent.
func (s *RedisStore) State(ctx context.Context, userID model.UserID) (model.ConversationState, error) {
	val, err := s.client.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.StateIdle, nil
	}
	if err != nil {
		return model.StateIdle, fmt.Errorf("failed to read state: %w", err)
	}
	return model.ConversationState(val), nil
}

// SetState records the user's conversation state.
func (s *RedisStore) SetState(ctx context.Context, userID model.UserID, st model.ConversationState) error {
	if err := s.client.Set(ctx, stateKey(userID), string(st), 0).Err(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Profile returns the user's profile, empty if absent.
func (s *RedisStore) Profile(ctx context.Context, userID model.UserID) (model.UserProfile, error) {
	var profile model.UserProfile
	val, err := s.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := json.Unmarshal(val, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies fn inside an optimistic transaction on the profile key.
func (s *RedisStore) UpdateProfile(ctx context.Context, userID model.UserID, fn func(*model.UserProfile)) error {
	key := profileKey(userID)
	return s.watchUpdate(ctx, key, func(tx *redis.Tx) (any, error) {
		var profile model.UserProfile
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		if err == nil {
			if err := json.Unmarshal(val, &profile); err != nil {
				return nil, err
			}
		}
		fn(&profile)
		return json.Marshal(profile)
	})
}

// Quota returns the user's request quota, fresh if absent.
func (s *RedisStore) Quota(ctx context.Context, userID model.UserID) (model.RequestQuota, error) {
	var quota model.RequestQuota
	val, err := s.client.Get(ctx, quotaKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return quota, nil
	}
	if err != nil {
		return quota, fmt.Errorf("failed to read quota: %w", err)
	}
	if err := json.Unmarshal(val, &quota); err != nil {
		return model.RequestQuota{}, fmt.Errorf("failed to decode quota: %w", err)
	}
	return quota, nil
}

// UpdateQuota applies fn inside an optimistic transaction on the quota key.
func (s *RedisStore) UpdateQuota(ctx context.Context, userID model.UserID, fn func(*model.RequestQuota)) error {
	key := quotaKey(userID)
	return s.watchUpdate(ctx, key, func(tx *redis.Tx) (any, error) {
		var quota model.RequestQuota
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		if err == nil {
			if err := json.Unmarshal(val, &quota); err != nil {
				return nil, err
			}
		}
		fn(&quota)
		return json.Marshal(quota)
	})
}

// watchUpdate runs a WATCH/GET/compute/SET cycle on key, retrying when a
// concurrent writer invalidates the transaction.
func (s *RedisStore) watchUpdate(ctx context.Context, key string, compute func(tx *redis.Tx) (any, error)) error {
	txn := func(tx *redis.Tx) error {
		next, err := compute(tx)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < txRetries; i++ {
		err = s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	return nil
}
