package sso

import (
	"context"
	"fmt"
	"time"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// Registrar obtains a registered OAuth client, from the cache or the network
type Registrar struct {
	client     OIDCClient
	cache      Cache
	key        CacheKey
	scopes     []string
	clientName string
}

// NewRegistrar creates a Registrar bound to key
func NewRegistrar(client OIDCClient, cache Cache, key CacheKey, scopes []string, clientName string) *Registrar {
	if clientName == "" {
		clientName = DefaultClientName
	}
	return &Registrar{
		client:     client,
		cache:      cache,
		key:        key,
		scopes:     normalizeScopes(scopes),
		clientName: clientName,
	}
}

// RegisterClient returns the cached registration for the bound key, or
// registers a new public client and caches it. Failures are not retried.
func (r *Registrar) RegisterClient(ctx context.Context) (*ClientRegistration, error) {
	cached, err := r.cache.LoadClientRegistration(r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load client registration: %w", err)
	}
	if cached != nil {
		logging.Debug("Registrar", "Using cached client registration %s", cached.ClientID)
		return cached, nil
	}

	resp, err := r.client.RegisterClient(ctx, RegisterClientRequest{
		ClientName: r.clientName,
		ClientType: ClientTypePublic,
		Scopes:     r.scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register client: %w", err)
	}

	reg := &ClientRegistration{
		ClientID:     resp.ClientID,
		ClientSecret: resp.ClientSecret,
		ExpiresAt:    time.Unix(resp.ClientSecretExpiresAt, 0).UTC(),
		Scopes:       r.scopes,
	}

	if err := r.cache.SaveClientRegistration(r.key, reg); err != nil {
		return nil, fmt.Errorf("failed to save client registration: %w", err)
	}

	logging.Info("Registrar", "Registered client %s, expires %s", reg.ClientID, reg.ExpiresAt.Format(time.RFC3339))
	return reg, nil
}
