package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// DefaultRefreshWindow is how long before expiry a TokenSource refreshes
const DefaultRefreshWindow = 5 * time.Minute

// TokenSourceOptions configures a TokenSource
type TokenSourceOptions struct {
	// RefreshWindow defaults to DefaultRefreshWindow
	RefreshWindow time.Duration
	// Interactive allows a device authorization when no usable token is cached
	Interactive bool
}

// TokenSource serves valid bearer tokens from a Provider, refreshing them
// before they expire. It implements oauth2.TokenSource.
type TokenSource struct {
	ctx      context.Context
	provider *Provider
	opts     TokenSourceOptions
	group    singleflight.Group
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource creates a TokenSource; ctx bounds every network call it makes
func NewTokenSource(ctx context.Context, provider *Provider, opts TokenSourceOptions) *TokenSource {
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	return &TokenSource{ctx: ctx, provider: provider, opts: opts}
}

// Token implements oauth2.TokenSource. The refresh token is never exposed.
func (s *TokenSource) Token() (*oauth2.Token, error) {
	token, err := s.AccessToken()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		Expiry:      token.ExpiresAt,
	}, nil
}

// AccessToken returns a token that is valid for at least the refresh window
// when one can be obtained, refreshing or re-authorizing as needed.
func (s *TokenSource) AccessToken() (*AccessToken, error) {
	current, err := s.provider.CachedToken()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return s.login()
	}

	now := s.provider.clock.Now()
	if !current.ExpiresWithin(now, s.opts.RefreshWindow) {
		return current, nil
	}

	if current.HasRefreshToken() {
		refreshed, err := s.refresh(current)
		if err == nil {
			return refreshed, nil
		}
		if !requiresLogin(err) {
			if !current.IsExpired(now) {
				logging.Warn("TokenSource", "Refresh failed, using token until it expires: %v", err)
				return current, nil
			}
			return nil, err
		}
		logging.Info("TokenSource", "Refresh rejected for %s: %v", s.provider.Key(), err)
	} else if !current.IsExpired(now) {
		return current, nil
	}

	// the dead token is only dropped when a new login replaces it
	if !s.opts.Interactive {
		return s.login()
	}
	if err := s.provider.Invalidate(); err != nil {
		return nil, err
	}
	return s.login()
}

func (s *TokenSource) refresh(current *AccessToken) (*AccessToken, error) {
	v, err, _ := s.group.Do(current.AccessToken, func() (interface{}, error) {
		return s.provider.RefreshToken(s.ctx, current)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AccessToken), nil
}

func (s *TokenSource) login() (*AccessToken, error) {
	if !s.opts.Interactive {
		return nil, fmt.Errorf("%w for %s", ErrLoginRequired, s.provider.Settings().StartURL)
	}
	return s.provider.AccessToken(s.ctx)
}

// requiresLogin reports refresh failures that only a new device authorization can fix
func requiresLogin(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidGrant) ||
		errors.Is(err, ErrInvalidClient) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrAccessDenied)
}
