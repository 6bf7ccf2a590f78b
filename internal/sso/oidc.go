package sso

import (
	"fmt"
)

// RegisterClientRequest is the input of OIDCClient.RegisterClient
type RegisterClientRequest struct {
	ClientName string
	ClientType string
	Scopes     []string
}

// RegisterClientResponse is a freshly registered client
type RegisterClientResponse struct {
	ClientID     string
	ClientSecret string
	// ClientSecretExpiresAt is in Unix seconds
	ClientSecretExpiresAt int64
}

// StartDeviceAuthorizationRequest is the input of OIDCClient.StartDeviceAuthorization
type StartDeviceAuthorizationRequest struct {
	ClientID     string
	ClientSecret string
	StartURL     string
}

// DeviceAuthorizationResponse is the server's device authorization challenge
type DeviceAuthorizationResponse struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	// ExpiresIn is in seconds
	ExpiresIn int32
	// Interval is in seconds; zero when the server did not send one
	Interval int32
}

// CreateTokenRequest is the input of OIDCClient.CreateToken.
// DeviceCode is set for GrantTypeDeviceCode, RefreshToken for GrantTypeRefreshToken.
type CreateTokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	DeviceCode   string
	RefreshToken string
}

func (r CreateTokenRequest) String() string {
	return fmt.Sprintf("CreateTokenRequest{GrantType: %s, ClientID: %s}", r.GrantType, r.ClientID)
}

// TokenGrant is a token issued by the token endpoint
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is in seconds
	ExpiresIn int32
}

// TokenResultKind tags a TokenResult
type TokenResultKind int

const (
	// TokenFatal means the request failed; Err is set
	TokenFatal TokenResultKind = iota
	// TokenIssued means Grant is set
	TokenIssued
	// TokenPending means the user has not approved yet
	TokenPending
	// TokenSlowDown means the client must poll less frequently
	TokenSlowDown
)

func (k TokenResultKind) String() string {
	switch k {
	case TokenIssued:
		return "issued"
	case TokenPending:
		return "pending"
	case TokenSlowDown:
		return "slow_down"
	default:
		return "fatal"
	}
}

// TokenResult is the outcome of one token endpoint call
type TokenResult struct {
	Kind  TokenResultKind
	Grant *TokenGrant
	Err   error
}

// Issued wraps a granted token
func Issued(grant *TokenGrant) TokenResult {
	return TokenResult{Kind: TokenIssued, Grant: grant}
}

// Pending reports authorization_pending
func Pending() TokenResult {
	return TokenResult{Kind: TokenPending}
}

// SlowDown reports slow_down
func SlowDown() TokenResult {
	return TokenResult{Kind: TokenSlowDown}
}

// Fatal wraps an error that ends the flow
func Fatal(err error) TokenResult {
	return TokenResult{Kind: TokenFatal, Err: err}
}

// Error returns the error to surface for a result that is not Issued
func (r TokenResult) Error() error {
	switch r.Kind {
	case TokenIssued:
		return nil
	case TokenPending:
		return ErrAuthorizationPending
	case TokenSlowDown:
		return ErrSlowDown
	default:
		if r.Err == nil {
			return fmt.Errorf("token request failed")
		}
		return r.Err
	}
}
