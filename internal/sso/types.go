package sso

import (
	"fmt"
	"time"
)

// Constants for the device authorization flow
const (
	// DefaultPollInterval is used when the server does not provide one
	DefaultPollInterval = 5 * time.Second
	// SlowDownIncrement is added to the poll interval on every slow_down response
	SlowDownIncrement = 5 * time.Second
	// DefaultClientName is the display name sent when registering the public client
	DefaultClientName = "FTL SSO CLI"
	// ClientTypePublic is the only client type this package registers
	ClientTypePublic = "public"
	// ToolName namespaces cache entries written by this client
	ToolName = "ftl-sso"

	GrantTypeDeviceCode   = "urn:ietf:params:oauth:grant-type:device_code"
	GrantTypeRefreshToken = "refresh_token"
)

// ClientRegistration is a registered public OAuth client
type ClientRegistration struct {
	ClientID     string    `json:"clientId"`
	ClientSecret string    `json:"clientSecret"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// IsExpired reports whether the registration has expired at now
func (r *ClientRegistration) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// String redacts the client secret
func (r ClientRegistration) String() string {
	return fmt.Sprintf("ClientRegistration{ClientID: %s, ExpiresAt: %s}", r.ClientID, r.ExpiresAt.Format(time.RFC3339))
}

// Authorization is a pending device authorization.
//
// DeviceCode is a one-time credential; an Authorization is never cached and
// its formatted forms redact it.
type Authorization struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresAt               time.Time
	PollInterval            time.Duration
	CreatedAt               time.Time
}

func (a Authorization) String() string {
	return fmt.Sprintf("Authorization{UserCode: %s, VerificationURI: %s, ExpiresAt: %s, PollInterval: %s}",
		a.UserCode, a.VerificationURI, a.ExpiresAt.Format(time.RFC3339), a.PollInterval)
}

func (a Authorization) GoString() string {
	return a.String()
}

// Prompt returns what the user needs to approve this authorization
func (a *Authorization) Prompt() ApprovalPrompt {
	return ApprovalPrompt{
		UserCode:                a.UserCode,
		VerificationURI:         a.VerificationURI,
		VerificationURIComplete: a.VerificationURIComplete,
		ExpiresAt:               a.ExpiresAt,
	}
}

// AccessToken is a bearer token issued for a start URL.
// An empty RefreshToken means the token cannot be renewed.
type AccessToken struct {
	StartURL     string    `json:"startUrl"`
	Region       string    `json:"region"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasRefreshToken reports whether the token can be renewed without user approval
func (t *AccessToken) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// IsExpired reports whether the token has expired at now
func (t *AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within d of now
func (t *AccessToken) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(t.ExpiresAt)
}

// SessionAge returns how long ago the session behind this token started.
// It is zero when the creation time is unknown.
func (t *AccessToken) SessionAge(now time.Time) time.Duration {
	if !hasCreationTime(t.CreatedAt) {
		return 0
	}
	return now.Sub(t.CreatedAt)
}

// HasCreationTime reports whether the session start of this token is known
func (t *AccessToken) HasCreationTime() bool {
	return hasCreationTime(t.CreatedAt)
}

// String redacts the token values
func (t AccessToken) String() string {
	return fmt.Sprintf("AccessToken{StartURL: %s, Region: %s, ExpiresAt: %s, Refreshable: %t}",
		t.StartURL, t.Region, t.ExpiresAt.Format(time.RFC3339), t.HasRefreshToken())
}

// hasCreationTime is false for zero and Unix-epoch timestamps, which older
// cache entries carry when the creation time was never recorded.
func hasCreationTime(t time.Time) bool {
	return !t.IsZero() && !t.Equal(time.Unix(0, 0))
}

// ApprovalPrompt is what a LoginCallback shows to the user
type ApprovalPrompt struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresAt               time.Time
}
