package redisstate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/agentfleet/toolpool/state"
)

// Config for the Redis-backed state store. Defaults can be loaded via
// envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: TOOLPOOL_STATE_KEY_PREFIX
	KeyPrefix string `env:"TOOLPOOL_STATE_KEY_PREFIX,default=toolpool:state:"`
	// TTL for a tenant's tool-set memory. ENV: TOOLPOOL_STATE_TTL
	TTL time.Duration `env:"TOOLPOOL_STATE_TTL,default=720h"`

	// Client overrides RedisAddr with an existing client. The store takes
	// ownership and closes it.
	Client *redis.Client
}

// Store implements state.Store on Redis. Tool unions are kept as Redis sets
// with a sliding TTL.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// New creates a Redis-backed store and verifies connectivity.
func New(cfg Config) (*Store, error) {
	cl := cfg.Client
	if cl == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cl = redis.NewClient(&redis.Options{Addr: addr})
	}
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "toolpool:state:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{client: cl, keyPrefix: prefix, ttl: ttl}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

func (s *Store) toolsKey(key string) string { return s.keyPrefix + "tools:" + key }

func (s *Store) ToolSet(ctx context.Context, key string) ([]string, error) {
	tools, err := s.client.SMembers(ctx, s.toolsKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read tool set for %q: %w", key, err)
	}
	if len(tools) == 0 {
		return nil, nil
	}
	sort.Strings(tools)
	return tools, nil
}

func (s *Store) RememberToolSet(ctx context.Context, key string, tools []string) error {
	if len(tools) == 0 {
		return nil
	}
	rk := s.toolsKey(key)
	members := make([]interface{}, len(tools))
	for i, name := range tools {
		members[i] = name
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, rk, members...)
	pipe.Expire(ctx, rk, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remember tool set for %q: %w", key, err)
	}
	return nil
}

func (s *Store) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.toolsKey(key)).Err(); err != nil {
		return fmt.Errorf("forget tool set for %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

var _ state.Store = (*Store)(nil)
