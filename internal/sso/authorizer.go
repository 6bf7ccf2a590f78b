package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// Authorizer exchanges a client registration for a device authorization
type Authorizer struct {
	client   OIDCClient
	cache    Cache
	key      CacheKey
	startURL string
	clock    Clock
}

// NewAuthorizer creates an Authorizer bound to key
func NewAuthorizer(client OIDCClient, cache Cache, key CacheKey, startURL string, clock Clock) *Authorizer {
	if clock == nil {
		clock = SystemClock
	}
	return &Authorizer{
		client:   client,
		cache:    cache,
		key:      key,
		startURL: startURL,
		clock:    clock,
	}
}

// AuthorizeClient starts a device authorization for the bound start URL.
//
// When the server rejects the client as invalid, the cached registration is
// invalidated so the next attempt registers again, and the error is returned.
func (a *Authorizer) AuthorizeClient(ctx context.Context, reg *ClientRegistration) (*Authorization, error) {
	resp, err := a.client.StartDeviceAuthorization(ctx, StartDeviceAuthorizationRequest{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		StartURL:     a.startURL,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidClient) {
			logging.Warn("Authorizer", "Client %s rejected, invalidating cached registration", reg.ClientID)
			if invErr := a.cache.InvalidateClientRegistration(a.key); invErr != nil {
				logging.Error("Authorizer", invErr, "Failed to invalidate client registration")
			}
		}
		return nil, fmt.Errorf("failed to start device authorization: %w", err)
	}

	now := a.clock.Now()
	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Authorization{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		ExpiresAt:               now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		PollInterval:            interval,
		CreatedAt:               now,
	}, nil
}
