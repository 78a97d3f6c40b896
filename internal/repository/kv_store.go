package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// KVStore is the key-value contract behind user preferences and counters.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	AddToSet(ctx context.Context, key string, members ...string) error
	RemoveFromSet(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetSize(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisKVStore implements KVStore on top of Redis strings and sets.
type RedisKVStore struct {
	client *redis.Client
	prefix string
}

// NewRedisKVStore constructs a Redis backed store. Keys are namespaced with prefix.
func NewRedisKVStore(client *redis.Client, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

func (s *RedisKVStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Get returns the string stored at key, or ErrNotFound.
func (s *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value at key without expiry.
func (s *RedisKVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// AddToSet adds members to the set at key.
func (s *RedisKVStore) AddToSet(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, s.key(key), toInterfaces(members)...).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", key, err)
	}
	return nil
}

// RemoveFromSet removes members from the set at key.
func (s *RedisKVStore) RemoveFromSet(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, s.key(key), toInterfaces(members)...).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w", key, err)
	}
	return nil
}

// SetMembers returns the sorted members of the set at key.
func (s *RedisKVStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	sort.Strings(members)
	return members, nil
}

// SetSize returns the cardinality of the set at key.
func (s *RedisKVStore) SetSize(ctx context.Context, key string) (int64, error) {
	size, err := s.client.SCard(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard %s: %w", key, err)
	}
	return size, nil
}

// Incr atomically increments the counter at key.
func (s *RedisKVStore) Incr(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return value, nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// MemoryKVStore is a process-local KVStore used when Redis is disabled and in tests.
type MemoryKVStore struct {
	mu      sync.RWMutex
	values  map[string]string
	sets    map[string]map[string]struct{}
	counter map[string]int64
}

// NewMemoryKVStore constructs an empty in-memory store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		values:  make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		counter: make(map[string]int64),
	}
}

func (s *MemoryKVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if n, ok := s.counter[key]; ok {
		return fmt.Sprintf("%d", n), nil
	}
	return "", appErrors.ErrNotFound
}

func (s *MemoryKVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	delete(s.counter, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryKVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	delete(s.sets, key)
	delete(s.counter, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryKVStore) AddToSet(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryKVStore) RemoveFromSet(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryKVStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryKVStore) SetSize(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryKVStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
		s.counter[key] = n
		delete(s.values, key)
	}
	s.counter[key]++
	return s.counter[key], nil
}
