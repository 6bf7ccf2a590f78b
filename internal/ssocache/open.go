package ssocache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fastertools/ftl-sso/internal/sso"
)

// Backend names accepted by Open
const (
	BackendDisk    = "disk"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
	BackendRedis   = "redis"
)

// Backends lists every supported backend
var Backends = []string{BackendDisk, BackendKeyring, BackendMemory, BackendRedis}

// Options select and configure a backend
type Options struct {
	// Backend defaults to BackendDisk
	Backend string
	// Dir overrides the disk cache directory
	Dir string
	// KeyringService overrides KeyringService
	KeyringService string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	Clock          sso.Clock
}

// Open creates the Cache described by opts
func Open(ctx context.Context, opts Options) (*Cache, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendDisk
	}

	switch backend {
	case BackendDisk:
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = DefaultDiskDir(); err != nil {
				return nil, err
			}
		}
		return New(BackendDisk, NewDiskStore(dir), opts.Clock), nil

	case BackendKeyring:
		return New(BackendKeyring, NewKeyringStore(opts.KeyringService), opts.Clock), nil

	case BackendMemory:
		return New(BackendMemory, NewMemoryStore(), opts.Clock), nil

	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache requires an address")
		}
		store, err := NewRedisStore(ctx, &redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return New(BackendRedis, store, opts.Clock), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q (valid: %s)", opts.Backend, strings.Join(Backends, ", "))
	}
}
