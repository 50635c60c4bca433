package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// casScript performs the compare-and-swap of one key atomically on the
// server. Items are hashes with fields v (value) and e (etag).
var casScript = backend.NewScript(`
local current = redis.call("HGET", KEYS[1], "e")
local expected = ARGV[1]
if expected ~= "*" then
	if expected == "" then
		if current then return 0 end
	elseif current ~= expected then
		return 0
	end
end
redis.call("HSET", KEYS[1], "v", ARGV[2], "e", ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`)

// Store implements ports.Storage using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored scopes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "botbuilder:state:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Read fetches all keys in one pipeline.
func (s *Store) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	out := make(map[string]ports.StoreItem, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.SliceCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HMGet(ctx, s.key(k), "v", "e")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}

	for i, k := range keys {
		vals := cmds[i].Val()
		if len(vals) != 2 || vals[1] == nil {
			continue
		}
		value, _ := vals[0].(string)
		etag, _ := vals[1].(string)
		out[k] = ports.StoreItem{Value: []byte(value), ETag: etag}
	}
	return out, nil
}

// Write runs the compare-and-swap script per key and indexes written keys.
func (s *Store) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	written := make(map[string]string, len(changes))
	var conflicts []string

	for k, item := range changes {
		etag := uuid.NewString()
		ok, err := casScript.Run(ctx, s.client,
			[]string{s.key(k)},
			item.ETag, item.Value, etag, s.ttl.Milliseconds(),
		).Int()
		if err != nil {
			return written, fmt.Errorf("failed to write %s to redis: %w", k, err)
		}
		if ok == 0 {
			conflicts = append(conflicts, k)
			continue
		}
		written[k] = etag
	}

	if len(written) > 0 {
		if err := s.index(ctx, written); err != nil {
			return written, err
		}
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return written, &ports.ConflictError{Keys: conflicts}
	}
	return written, nil
}

// index records written keys in a sorted set scored by expiry so List can
// prune lazily.
func (s *Store) index(ctx context.Context, written map[string]string) error {
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	members := make([]backend.Z, 0, len(written))
	for k := range written {
		members = append(members, backend.Z{Score: score, Member: k})
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), members...).Err(); err != nil {
		return fmt.Errorf("failed to index keys: %w", err)
	}
	return nil
}

// Delete removes keys and their index entries.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	members := make([]any, 0, len(keys))
	for _, k := range keys {
		pipe.Del(ctx, s.key(k))
		members = append(members, k)
	}
	pipe.ZRem(ctx, s.indexKey(), members...)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns indexed keys with the given prefix, pruning expired ones first.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired keys: %w", err)
	}

	all, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := []string{}
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
