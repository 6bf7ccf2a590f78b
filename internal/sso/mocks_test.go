package sso

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockOIDCClient records calls and replays scripted token results
type MockOIDCClient struct {
	mu sync.Mutex

	RegisterClientFunc  func(ctx context.Context, req RegisterClientRequest) (*RegisterClientResponse, error)
	RegisterClientCalls []RegisterClientRequest

	StartDeviceAuthorizationFunc  func(ctx context.Context, req StartDeviceAuthorizationRequest) (*DeviceAuthorizationResponse, error)
	StartDeviceAuthorizationCalls []StartDeviceAuthorizationRequest

	// TokenResults are returned in order by CreateToken; the last one repeats.
	// CreateTokenFunc, when set, takes precedence.
	CreateTokenFunc  func(ctx context.Context, req CreateTokenRequest) TokenResult
	TokenResults     []TokenResult
	CreateTokenCalls []CreateTokenRequest
}

var _ OIDCClient = (*MockOIDCClient)(nil)

func (m *MockOIDCClient) RegisterClient(ctx context.Context, req RegisterClientRequest) (*RegisterClientResponse, error) {
	m.mu.Lock()
	m.RegisterClientCalls = append(m.RegisterClientCalls, req)
	fn := m.RegisterClientFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &RegisterClientResponse{
		ClientID:              "mock-client-id",
		ClientSecret:          "mock-client-secret",
		ClientSecretExpiresAt: testNow.Add(90 * 24 * time.Hour).Unix(),
	}, nil
}

func (m *MockOIDCClient) StartDeviceAuthorization(ctx context.Context, req StartDeviceAuthorizationRequest) (*DeviceAuthorizationResponse, error) {
	m.mu.Lock()
	m.StartDeviceAuthorizationCalls = append(m.StartDeviceAuthorizationCalls, req)
	fn := m.StartDeviceAuthorizationFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &DeviceAuthorizationResponse{
		DeviceCode:              "mock-device-code",
		UserCode:                "MOCK-CODE",
		VerificationURI:         "https://device.sso.example.com/",
		VerificationURIComplete: "https://device.sso.example.com/?user_code=MOCK-CODE",
		ExpiresIn:               600,
		Interval:                5,
	}, nil
}

func (m *MockOIDCClient) CreateToken(ctx context.Context, req CreateTokenRequest) TokenResult {
	m.mu.Lock()
	m.CreateTokenCalls = append(m.CreateTokenCalls, req)
	fn := m.CreateTokenFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.TokenResults) == 0 {
		return Fatal(errors.New("no scripted token results"))
	}
	res := m.TokenResults[0]
	if len(m.TokenResults) > 1 {
		m.TokenResults = m.TokenResults[1:]
	}
	return res
}

func (m *MockOIDCClient) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RegisterClientCalls) + len(m.StartDeviceAuthorizationCalls) + len(m.CreateTokenCalls)
}

// MockCache is an in-memory Cache that records every key it is asked about
type MockCache struct {
	mu            sync.Mutex
	registrations map[string]*ClientRegistration
	tokens        map[string]*AccessToken
	KeysSeen      []CacheKey
	Writes        int
	Err           error
}

var _ Cache = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{
		registrations: make(map[string]*ClientRegistration),
		tokens:        make(map[string]*AccessToken),
	}
}

func (c *MockCache) touch(key CacheKey) error {
	c.KeysSeen = append(c.KeysSeen, key)
	return c.Err
}

func (c *MockCache) LoadClientRegistration(key CacheKey) (*ClientRegistration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return nil, err
	}
	return c.registrations[key.RegistrationCacheID()], nil
}

func (c *MockCache) SaveClientRegistration(key CacheKey, reg *ClientRegistration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return err
	}
	c.Writes++
	c.registrations[key.RegistrationCacheID()] = reg
	return nil
}

func (c *MockCache) InvalidateClientRegistration(key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return err
	}
	c.Writes++
	delete(c.registrations, key.RegistrationCacheID())
	return nil
}

func (c *MockCache) LoadAccessToken(key CacheKey) (*AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return nil, err
	}
	return c.tokens[key.TokenCacheID()], nil
}

func (c *MockCache) SaveAccessToken(key CacheKey, token *AccessToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return err
	}
	c.Writes++
	c.tokens[key.TokenCacheID()] = token
	return nil
}

func (c *MockCache) InvalidateAccessToken(key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.touch(key); err != nil {
		return err
	}
	c.Writes++
	delete(c.tokens, key.TokenCacheID())
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock advances only when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testNow}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleeper records requested durations and advances the clock instead of sleeping
type recordingSleeper struct {
	clock *fakeClock
	Slept []time.Duration
	Err   error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if s.Err != nil {
		return s.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Slept = append(s.Slept, d)
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

// recordingCallback records login events
type recordingCallback struct {
	Prompts  []ApprovalPrompt
	Approved int
	Failures []error
}

func (c *recordingCallback) OnWaitingForApproval(prompt ApprovalPrompt) {
	c.Prompts = append(c.Prompts, prompt)
}

func (c *recordingCallback) OnApproved() { c.Approved++ }

func (c *recordingCallback) OnFailed(err error) { c.Failures = append(c.Failures, err) }

// recordingTelemetry records observations
type recordingTelemetry struct {
	Succeeded []time.Duration
	Failed    []string
	FailedAge []time.Duration
	Logins    []string
}

func (t *recordingTelemetry) RefreshSucceeded(age time.Duration) {
	t.Succeeded = append(t.Succeeded, age)
}

func (t *recordingTelemetry) RefreshFailed(age time.Duration, reason string) {
	t.FailedAge = append(t.FailedAge, age)
	t.Failed = append(t.Failed, reason)
}

func (t *recordingTelemetry) LoginFinished(result string) {
	t.Logins = append(t.Logins, result)
}

// TestHelpers builds common fixtures
type TestHelpers struct{}

func (TestHelpers) Registration() *ClientRegistration {
	return &ClientRegistration{
		ClientID:     "c1",
		ClientSecret: "s1",
		ExpiresAt:    testNow.Add(time.Hour),
	}
}

func (TestHelpers) Authorization() *Authorization {
	return &Authorization{
		DeviceCode:              "dc1",
		UserCode:                "ABCD-1234",
		VerificationURI:         "https://device.sso.example.com/",
		VerificationURIComplete: "https://device.sso.example.com/?user_code=ABCD-1234",
		ExpiresAt:               testNow.Add(10 * time.Minute),
		PollInterval:            5 * time.Second,
		CreatedAt:               testNow,
	}
}

func (TestHelpers) Token(refresh string) *AccessToken {
	return &AccessToken{
		StartURL:     "https://example.awsapps.com/start",
		Region:       "us-east-1",
		AccessToken:  "at0",
		RefreshToken: refresh,
		ExpiresAt:    testNow.Add(time.Hour),
		CreatedAt:    testNow.Add(-2 * time.Hour),
	}
}

func (TestHelpers) Grant(accessToken string) TokenResult {
	return Issued(&TokenGrant{AccessToken: accessToken, ExpiresIn: 3600})
}

func legacySettings() Settings {
	return Settings{
		StartURL: "https://example.awsapps.com/start",
		Region:   "us-east-1",
	}
}

func scopedSettings() Settings {
	return Settings{
		ConnectionID: "conn-1",
		StartURL:     "https://example.awsapps.com/start",
		Region:       "us-east-1",
		Scopes:       []string{"sso:account:access", "codewhisperer:completions"},
	}
}
