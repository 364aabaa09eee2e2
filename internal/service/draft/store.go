package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrDraftNotFound = errors.New("draft not found")

// Store keeps drafts between requests of one editing session.
type Store interface {
	Create(ctx context.Context, d *Draft) error
	Get(ctx context.Context, sessionID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// MemoryStore holds drafts in process with a sliding TTL.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, ttl/2)}
}

func (s *MemoryStore) Create(ctx context.Context, d *Draft) error {
	return s.cache.Add(d.SessionID.String(), d.Clone(), cache.DefaultExpiration)
}

func (s *MemoryStore) Get(ctx context.Context, sessionID uuid.UUID) (*Draft, error) {
	v, found := s.cache.Get(sessionID.String())
	if !found {
		return nil, ErrDraftNotFound
	}
	return v.(*Draft).Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, d *Draft) error {
	s.cache.Set(d.SessionID.String(), d.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	s.cache.Delete(sessionID.String())
	return nil
}

// RedisStore shares drafts across API replicas as JSON values.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func draftKey(sessionID uuid.UUID) string {
	return "clinic:draft:" + sessionID.String()
}

func (s *RedisStore) Create(ctx context.Context, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	ok, err := s.client.SetNX(ctx, draftKey(d.SessionID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	if !ok {
		return fmt.Errorf("draft %s already exists", d.SessionID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID uuid.UUID) (*Draft, error) {
	payload, err := s.client.Get(ctx, draftKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.client.Del(ctx, draftKey(sessionID)).Err()
}
