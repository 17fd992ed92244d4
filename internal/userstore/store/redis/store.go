// Package redis keeps user records in Redis.
//
// Layout:
//
//	userstore:user:{id}     JSON record
//	userstore:users         sorted set of ids scored by creation time
//	userstore:email:{key}   id owning a normalized email address
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"userdir/internal/userstore/models"
	"userdir/pkg/platform/sentinel"
)

const (
	keyPrefix    = "userstore:"
	usersIndex   = keyPrefix + "users"
	maxTxRetries = 5
)

func userKey(id string) string     { return keyPrefix + "user:" + id }
func emailKey(email string) string { return keyPrefix + "email:" + models.NormalizeEmail(email) }

type record struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	MobileNumber string    `json:"mobileNumber"`
	EmailAddress string    `json:"emailAddress"`
	DateOfBirth  string    `json:"dateOfBirth"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2"`
	City         string    `json:"city"`
	PinCode      string    `json:"pinCode"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toRecord(u *models.User) record   { return record(*u) }
func (r record) toModel() *models.User { return (*models.User)(&r) }

// RedisStore is safe for concurrent use across processes sharing one Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	payload, err := json.Marshal(toRecord(u))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, emailKey(u.EmailAddress), u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return fmt.Errorf("email in use: %w", sentinel.ErrConflict)
	}

	stored, err := s.client.SetNX(ctx, userKey(u.ID), payload, 0).Result()
	if err != nil || !stored {
		s.client.Del(ctx, emailKey(u.EmailAddress))
		if err != nil {
			return fmt.Errorf("store user: %w", err)
		}
		return fmt.Errorf("user %s already exists: %w", u.ID, sentinel.ErrConflict)
	}

	score := float64(u.CreatedAt.UnixNano())
	if err := s.client.ZAdd(ctx, usersIndex, redis.Z{Score: score, Member: u.ID}).Err(); err != nil {
		return fmt.Errorf("index user: %w", err)
	}
	return nil
}

// Update replaces the record under optimistic locking on the user key.
func (s *RedisStore) Update(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	payload, err := json.Marshal(toRecord(u))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		existing, err := load(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		oldKey, newKey := emailKey(existing.EmailAddress), emailKey(u.EmailAddress)
		if oldKey != newKey {
			owner, err := tx.Get(ctx, newKey).Result()
			switch {
			case err == nil && owner != u.ID:
				return fmt.Errorf("email in use: %w", sentinel.ErrConflict)
			case err != nil && !errors.Is(err, redis.Nil):
				return fmt.Errorf("check email: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(u.ID), payload, 0)
			if oldKey != newKey {
				pipe.Del(ctx, oldKey)
				pipe.Set(ctx, newKey, u.ID, 0)
			}
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, userKey(u.ID), emailKey(u.EmailAddress))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	}
	return fmt.Errorf("update user %s: too much contention", u.ID)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	existing, err := load(ctx, s.client, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(id))
		pipe.Del(ctx, emailKey(existing.EmailAddress))
		pipe.ZRem(ctx, usersIndex, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return load(ctx, s.client, id)
}

func (s *RedisStore) List(ctx context.Context) ([]*models.User, error) {
	ids, err := s.client.ZRange(ctx, usersIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry outlived its record
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, rec.toModel())
	}
	return users, nil
}

// Ping reports an unreachable server as sentinel.ErrUnavailable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func load(ctx context.Context, c redis.Cmdable, id string) (*models.User, error) {
	raw, err := c.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return rec.toModel(), nil
}
