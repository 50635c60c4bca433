package config

import (
	"fmt"
	"path/filepath"
	"regexp"

	backend "github.com/redis/go-redis/v9"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/file"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/redis"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/sqlite"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/persistence/middleware"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/session"
)

const keySalt = "botbuilder/storage"

// Backend is an opened storage plus what the session manager needs.
type Backend struct {
	Storage ports.Storage
	// SessionOptions carries the distributed locker when one is configured.
	SessionOptions []session.Option
	Close          func() error
}

// Open builds the configured store, wrapped by the encryption middleware
// when a key is set.
func (c StorageConfig) Open() (*Backend, error) {
	b := &Backend{Close: func() error { return nil }}

	switch c.Driver {
	case "memory":
		b.Storage = memory.NewStore()
	case "file", "":
		b.Storage = file.New(c.Path)
	case "sqlite":
		dsn := c.Path
		if dsn == "" {
			dsn = filepath.Join(".botbuilder", "state.db")
		}
		store, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		b.Storage = store
		b.Close = store.Close
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     c.Redis.Address,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		var opts []redis.Option
		if c.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(c.Redis.Prefix))
		}
		if c.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.Redis.TTL))
		}
		b.Storage = redis.NewFromClient(client, opts...)
		b.Close = client.Close
		if c.Redis.Lock {
			prefix := c.Redis.Prefix
			if prefix == "" {
				prefix = "botbuilder:"
			}
			b.SessionOptions = append(b.SessionOptions, session.WithLocker(redis.NewLocker(client, prefix)))
			if c.Redis.LockTTL > 0 {
				b.SessionOptions = append(b.SessionOptions, session.WithLockTTL(c.Redis.LockTTL))
			}
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Driver)
	}

	if c.EncryptionKey != "" {
		enc, err := c.encryption()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Storage = middleware.Chain(b.Storage, enc)
	}
	return b, nil
}

func (c StorageConfig) encryption() (middleware.Middleware, error) {
	active, err := middleware.DeriveKey([]byte(c.EncryptionKey), keySalt, "active")
	if err != nil {
		return nil, err
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, old := range c.PreviousKeys {
		key, err := middleware.DeriveKey([]byte(old), keySalt, "active")
		if err != nil {
			return nil, err
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg), nil
}

// Masked wraps store so values of keys matching MaskKeys read back as "***".
func (c StorageConfig) Masked(store ports.Storage) (ports.Storage, error) {
	if len(c.MaskKeys) == 0 {
		return store, nil
	}
	for _, p := range c.MaskKeys {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("mask_keys: %w", err)
		}
	}
	return middleware.NewPIIMiddleware(c.MaskKeys)(store), nil
}
