package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// Login results reported to Telemetry.LoginFinished
const (
	LoginSucceeded = "Succeeded"
	LoginFailed    = "Failed"
	LoginCancelled = "Cancelled"
)

// reasonNoRefreshToken is the telemetry reason for a refresh attempted without a refresh token
const reasonNoRefreshToken = "NoRefreshToken"

// Provider produces SSO bearer tokens for one connection.
//
// All cache operations use the key chosen at construction: a LegacyKey when
// the connection has no scopes, a ScopedKey otherwise.
//
// Calls block on the caller's goroutine; AccessToken may wait for a human to
// approve the login. Concurrent calls for the same key are not coordinated and
// the last cache write wins.
type Provider struct {
	settings  Settings
	key       CacheKey
	client    OIDCClient
	cache     Cache
	clock     Clock
	sleeper   Sleeper
	callback  LoginCallback
	telemetry Telemetry
	// onDispatch reports whether the caller runs on a goroutine that must not block
	onDispatch func() bool

	registrar  *Registrar
	authorizer *Authorizer
	poller     *Poller
}

// Option configures a Provider
type Option func(*Provider)

// WithClock sets the time source
func WithClock(clock Clock) Option {
	return func(p *Provider) { p.clock = clock }
}

// WithSleeper sets the sleep primitive used between token requests
func WithSleeper(sleeper Sleeper) Option {
	return func(p *Provider) { p.sleeper = sleeper }
}

// WithLoginCallback sets the observer of the device authorization
func WithLoginCallback(cb LoginCallback) Option {
	return func(p *Provider) { p.callback = cb }
}

// WithTelemetry sets the session observation hook
func WithTelemetry(t Telemetry) Option {
	return func(p *Provider) { p.telemetry = t }
}

// WithDispatchGuard installs a check run at the start of AccessToken.
// If it returns true the call panics: blocking that goroutine is a programming error.
func WithDispatchGuard(onDispatch func() bool) Option {
	return func(p *Provider) { p.onDispatch = onDispatch }
}

// NewProvider creates a Provider for settings
func NewProvider(settings Settings, client OIDCClient, cache Cache, opts ...Option) (*Provider, error) {
	if settings.StartURL == "" {
		return nil, fmt.Errorf("start URL is required")
	}
	if settings.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if client == nil {
		return nil, fmt.Errorf("OIDC client is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	settings.Scopes = normalizeScopes(settings.Scopes)

	p := &Provider{
		settings:  settings,
		key:       NewCacheKey(settings),
		client:    client,
		cache:     cache,
		clock:     SystemClock,
		sleeper:   CancellableSleeper{},
		callback:  NopCallback{},
		telemetry: NopTelemetry{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registrar = NewRegistrar(client, cache, p.key, settings.Scopes, settings.ClientName)
	p.authorizer = NewAuthorizer(client, cache, p.key, settings.StartURL, p.clock)
	p.poller = NewPoller(client, p.clock, p.sleeper, settings.StartURL, settings.Region)

	return p, nil
}

// Key returns the cache key this provider is bound to
func (p *Provider) Key() CacheKey {
	return p.key
}

// Settings returns the connection settings
func (p *Provider) Settings() Settings {
	return p.settings
}

// CachedToken returns the cached token without any network call, or nil
func (p *Provider) CachedToken() (*AccessToken, error) {
	token, err := p.cache.LoadAccessToken(p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}
	return token, nil
}

// AccessToken returns the cached token, or runs the device authorization flow
// and caches its result. A cached token is returned unchanged even when it is
// close to expiry; see TokenSource for refresh handling.
func (p *Provider) AccessToken(ctx context.Context) (*AccessToken, error) {
	if p.onDispatch != nil && p.onDispatch() {
		panic("sso: AccessToken must not be called from the dispatch goroutine")
	}

	cached, err := p.CachedToken()
	if err != nil {
		return nil, err
	}
	if cached != nil {
		logging.Debug("Provider", "Using cached access token for %s", p.key)
		return cached, nil
	}

	logging.Info("Provider", "No cached token for %s, starting device authorization", p.key)

	token, err := p.login(ctx)
	if err != nil {
		if IsCancellation(err) {
			p.telemetry.LoginFinished(LoginCancelled)
		} else {
			p.telemetry.LoginFinished(LoginFailed)
		}
		return nil, err
	}
	p.telemetry.LoginFinished(LoginSucceeded)
	return token, nil
}

func (p *Provider) login(ctx context.Context) (*AccessToken, error) {
	reg, err := p.registrar.RegisterClient(ctx)
	if err != nil {
		return nil, err
	}

	auth, err := p.authorizer.AuthorizeClient(ctx, reg)
	if err != nil {
		return nil, err
	}

	token, err := p.poller.PollForToken(ctx, reg, auth, p.callback)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SaveAccessToken(p.key, token); err != nil {
		return nil, fmt.Errorf("failed to save access token: %w", err)
	}
	return token, nil
}

// RefreshToken exchanges current's refresh token for a new access token.
//
// A token without a refresh token fails with ErrInvalidRequest before any
// network call or cache write. The client registration must already be cached;
// a missing one fails with ErrInvalidClient. The new token keeps current's
// CreatedAt so session age is measured from the original login.
func (p *Provider) RefreshToken(ctx context.Context, current *AccessToken) (*AccessToken, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: no token to refresh", ErrInvalidRequest)
	}

	now := p.clock.Now()

	if !current.HasRefreshToken() {
		p.observeRefreshFailure(current, reasonNoRefreshToken)
		return nil, fmt.Errorf("%w: token has no refresh token", ErrInvalidRequest)
	}

	reg, err := p.cache.LoadClientRegistration(p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load client registration: %w", err)
	}
	if reg == nil {
		p.observeRefreshFailure(current, CodeInvalidClient)
		return nil, fmt.Errorf("%w: no cached client registration", ErrInvalidClient)
	}

	res := p.client.CreateToken(ctx, CreateTokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		RefreshToken: current.RefreshToken,
	})
	if res.Kind != TokenIssued {
		err := res.Error()
		p.observeRefreshFailure(current, refreshFailureReason(err))
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	token, err := newAccessToken(res.Grant, current.StartURL, current.Region, current.RefreshToken, current.CreatedAt, now)
	if err != nil {
		p.observeRefreshFailure(current, "InvalidResponse")
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := p.cache.SaveAccessToken(p.key, token); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	if hasCreationTime(current.CreatedAt) {
		p.telemetry.RefreshSucceeded(current.SessionAge(now))
	}
	logging.Debug("Provider", "Refreshed access token for %s", p.key)
	return token, nil
}

// Invalidate removes the cached access token. The client registration is kept.
func (p *Provider) Invalidate() error {
	if err := p.cache.InvalidateAccessToken(p.key); err != nil {
		return fmt.Errorf("failed to invalidate access token: %w", err)
	}
	return nil
}

func (p *Provider) observeRefreshFailure(token *AccessToken, reason string) {
	if !hasCreationTime(token.CreatedAt) {
		return
	}
	p.telemetry.RefreshFailed(token.SessionAge(p.clock.Now()), reason)
}

func refreshFailureReason(err error) string {
	if code := ErrorCode(err); code != "" {
		return code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Cancelled"
	}
	return "Unknown"
}
