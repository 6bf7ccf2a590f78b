// Package ssocache persists client registrations and access tokens for the sso package.
//
// A Cache applies the load rules shared by every backend on top of a Store,
// which only moves opaque JSON blobs:
//   - a registration that expires within RegistrationExpiryBuffer is a miss
//   - a token is a hit while it is unexpired or still refreshable
//   - an entry that cannot be decoded is a miss
//
// Store I/O errors are returned to the caller.
package ssocache

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/fastertools/ftl-sso/internal/logging"
	"github.com/fastertools/ftl-sso/internal/sso"
)

// RegistrationExpiryBuffer treats registrations close to expiry as expired,
// so a login never starts with a client that expires mid-flow.
const RegistrationExpiryBuffer = 15 * time.Minute

// ErrNotFound is returned by a Store for a missing id
var ErrNotFound = errors.New("cache entry not found")

// Store moves raw entries by id.
// A ttl of zero means the entry does not expire; stores without expiry support ignore it.
type Store interface {
	Get(id string) ([]byte, error)
	Put(id string, data []byte, ttl time.Duration) error
	Delete(id string) error
}

// Cache implements sso.Cache over a Store
type Cache struct {
	store Store
	clock sso.Clock
	name  string
}

var _ sso.Cache = (*Cache)(nil)

// New wraps store. name identifies the backend in logs.
func New(name string, store Store, clock sso.Clock) *Cache {
	if clock == nil {
		clock = sso.SystemClock
	}
	return &Cache{store: store, clock: clock, name: name}
}

// Name returns the backend name
func (c *Cache) Name() string {
	return c.name
}

// Close releases the store if it holds resources
func (c *Cache) Close() error {
	if closer, ok := c.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *Cache) LoadClientRegistration(key sso.CacheKey) (*sso.ClientRegistration, error) {
	var reg sso.ClientRegistration
	ok, err := c.load(key.RegistrationCacheID(), &reg)
	if err != nil || !ok {
		return nil, err
	}
	if !UsableRegistration(&reg, c.clock.Now()) {
		logging.Debug("Cache", "Client registration %s expires at %s, ignoring", reg.ClientID, reg.ExpiresAt.Format(time.RFC3339))
		return nil, nil
	}
	return &reg, nil
}

func (c *Cache) SaveClientRegistration(key sso.CacheKey, reg *sso.ClientRegistration) error {
	if reg == nil {
		return errors.New("cannot save nil client registration")
	}
	return c.save(key.RegistrationCacheID(), reg, expiryTTL(reg.ExpiresAt, c.clock.Now()))
}

func (c *Cache) InvalidateClientRegistration(key sso.CacheKey) error {
	return c.delete(key.RegistrationCacheID())
}

func (c *Cache) LoadAccessToken(key sso.CacheKey) (*sso.AccessToken, error) {
	var token sso.AccessToken
	ok, err := c.load(key.TokenCacheID(), &token)
	if err != nil || !ok {
		return nil, err
	}
	if !UsableToken(&token, c.clock.Now()) {
		logging.Debug("Cache", "Access token for %s expired and cannot be refreshed, ignoring", key)
		return nil, nil
	}
	return &token, nil
}

func (c *Cache) SaveAccessToken(key sso.CacheKey, token *sso.AccessToken) error {
	if token == nil {
		return errors.New("cannot save nil access token")
	}
	var ttl time.Duration
	if !token.HasRefreshToken() {
		ttl = expiryTTL(token.ExpiresAt, c.clock.Now())
	}
	return c.save(key.TokenCacheID(), token, ttl)
}

func (c *Cache) InvalidateAccessToken(key sso.CacheKey) error {
	return c.delete(key.TokenCacheID())
}

func (c *Cache) load(id string, v interface{}) (bool, error) {
	data, err := c.store.Get(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "%s cache: failed to read %s", c.name, id)
	}
	if err := json.Unmarshal(data, v); err != nil {
		logging.Warn("Cache", "Ignoring unreadable %s cache entry %s: %v", c.name, id, err)
		return false, nil
	}
	return true, nil
}

func (c *Cache) save(id string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}
	if err := c.store.Put(id, data, ttl); err != nil {
		return errors.Wrapf(err, "%s cache: failed to write %s", c.name, id)
	}
	return nil
}

func (c *Cache) delete(id string) error {
	if err := c.store.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrapf(err, "%s cache: failed to delete %s", c.name, id)
	}
	return nil
}

// UsableRegistration reports whether reg can still start a login at now
func UsableRegistration(reg *sso.ClientRegistration, now time.Time) bool {
	if reg == nil || reg.ClientID == "" {
		return false
	}
	return now.Add(RegistrationExpiryBuffer).Before(reg.ExpiresAt)
}

// UsableToken reports whether token is worth returning at now: either it is
// still valid or it can be refreshed.
func UsableToken(token *sso.AccessToken, now time.Time) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	return !token.IsExpired(now) || token.HasRefreshToken()
}

// expiryTTL is the time left until expiresAt, at least one second
func expiryTTL(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
