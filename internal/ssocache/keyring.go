package ssocache

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringService is the service name entries are stored under
const KeyringService = "ftl-sso"

// KeyringStore keeps entries in the OS keyring, one secret per id
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a KeyringStore; an empty service uses KeyringService
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = KeyringService
	}
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Get(id string) ([]byte, error) {
	data, err := keyring.Get(s.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Put ignores ttl; keyring entries never expire on their own
func (s *KeyringStore) Put(id string, data []byte, _ time.Duration) error {
	return keyring.Set(s.service, id, string(data))
}

func (s *KeyringStore) Delete(id string) error {
	err := keyring.Delete(s.service, id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
