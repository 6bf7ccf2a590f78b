package sso

import (
	"context"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)

// Cache stores client registrations and access tokens.
//
// Loads return (nil, nil) on a miss. Implementations must be safe for
// concurrent use; each call is an atomic single-key operation.
type Cache interface {
	LoadClientRegistration(key CacheKey) (*ClientRegistration, error)
	SaveClientRegistration(key CacheKey, reg *ClientRegistration) error
	InvalidateClientRegistration(key CacheKey) error

	LoadAccessToken(key CacheKey) (*AccessToken, error)
	SaveAccessToken(key CacheKey, token *AccessToken) error
	InvalidateAccessToken(key CacheKey) error
}

// OIDCClient is the network surface of the SSO OIDC service
type OIDCClient interface {
	// RegisterClient registers a public client
	RegisterClient(ctx context.Context, req RegisterClientRequest) (*RegisterClientResponse, error)
	// StartDeviceAuthorization starts a device authorization for a start URL
	StartDeviceAuthorization(ctx context.Context, req StartDeviceAuthorizationRequest) (*DeviceAuthorizationResponse, error)
	// CreateToken redeems a device code or a refresh token
	CreateToken(ctx context.Context, req CreateTokenRequest) TokenResult
}

// LoginCallback observes a device authorization while it waits for the user
type LoginCallback interface {
	// OnWaitingForApproval is called once, before polling starts
	OnWaitingForApproval(prompt ApprovalPrompt)
	// OnApproved is called when a token was issued
	OnApproved()
	// OnFailed is called when polling ends without a token
	OnFailed(err error)
}

// Sleeper suspends the polling loop between token requests
type Sleeper interface {
	// Sleep waits for d, returning early with an error when cancelled
	Sleep(ctx context.Context, d time.Duration) error
}

// Telemetry receives session observations from the refresh path
type Telemetry interface {
	RefreshSucceeded(sessionAge time.Duration)
	RefreshFailed(sessionAge time.Duration, reason string)
	LoginFinished(result string)
}

// NopTelemetry discards every observation
type NopTelemetry struct{}

func (NopTelemetry) RefreshSucceeded(time.Duration)       {}
func (NopTelemetry) RefreshFailed(time.Duration, string) {}
func (NopTelemetry) LoginFinished(string)                {}

// NopCallback ignores every login event
type NopCallback struct{}

func (NopCallback) OnWaitingForApproval(ApprovalPrompt) {}
func (NopCallback) OnApproved()                         {}
func (NopCallback) OnFailed(error)                      {}
