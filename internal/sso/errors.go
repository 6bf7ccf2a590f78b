package sso

import (
	"errors"
	"fmt"
)

// Error codes returned by the SSO OIDC service
const (
	CodeAuthorizationPending = "authorization_pending"
	CodeSlowDown             = "slow_down"
	CodeInvalidClient        = "invalid_client"
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidGrant         = "invalid_grant"
	CodeExpiredToken         = "expired_token"
	CodeAccessDenied         = "access_denied"
	// CodeUnauthorizedClient has no sentinel; it never invalidates a registration
	CodeUnauthorizedClient = "unauthorized_client"
)

var (
	// ErrAuthorizationPending means the user has not approved the request yet
	ErrAuthorizationPending = errors.New(CodeAuthorizationPending)
	// ErrSlowDown means the client polls too often
	ErrSlowDown = errors.New(CodeSlowDown)
	// ErrInvalidClient means the client registration is unknown or stale
	ErrInvalidClient = errors.New(CodeInvalidClient)
	// ErrInvalidRequest means the request cannot be made, e.g. a refresh without a refresh token
	ErrInvalidRequest = errors.New(CodeInvalidRequest)
	// ErrInvalidGrant means the device code or refresh token was rejected
	ErrInvalidGrant = errors.New(CodeInvalidGrant)
	// ErrExpiredToken means the device code expired before approval
	ErrExpiredToken = errors.New(CodeExpiredToken)
	// ErrAccessDenied means the user denied the request
	ErrAccessDenied = errors.New(CodeAccessDenied)
	// ErrLoginRequired means no usable token exists and an interactive login is needed
	ErrLoginRequired = errors.New("login required")
)

var sentinels = map[string]error{
	CodeAuthorizationPending: ErrAuthorizationPending,
	CodeSlowDown:             ErrSlowDown,
	CodeInvalidClient:        ErrInvalidClient,
	CodeInvalidRequest:       ErrInvalidRequest,
	CodeInvalidGrant:         ErrInvalidGrant,
	CodeExpiredToken:         ErrExpiredToken,
	CodeAccessDenied:         ErrAccessDenied,
}

// OIDCError is an error response from the SSO OIDC service
type OIDCError struct {
	Code        string
	Description string
	// Err is the transport error, if any
	Err error
}

// NewOIDCError builds an OIDCError for code
func NewOIDCError(code, description string, err error) *OIDCError {
	return &OIDCError{Code: code, Description: description, Err: err}
}

func (e *OIDCError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// Is matches the sentinel for the error code
func (e *OIDCError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func (e *OIDCError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the OIDC error code carried by err, or "" if none.
// Local sentinels map to their own code.
func ErrorCode(err error) string {
	var oe *OIDCError
	if errors.As(err, &oe) {
		return oe.Code
	}
	for code, s := range sentinels {
		if errors.Is(err, s) {
			return code
		}
	}
	return ""
}
