package sso

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what can be read from a JWT-shaped access token
type TokenClaims struct {
	Subject   string
	Issuer    string
	Email     string
	Name      string
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// InspectToken reads the claims of a JWT access token without verifying it.
// SSO access tokens are often opaque; those return an error.
// The result is for display only and must not be used for authorization.
func InspectToken(raw string) (*TokenClaims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("token is not a JWT")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	tc := &TokenClaims{}
	tc.Subject, _ = claims.GetSubject()
	tc.Issuer, _ = claims.GetIssuer()

	if email, ok := claims["email"].(string); ok {
		tc.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		tc.Name = name
	}
	if username, ok := claims["username"].(string); ok {
		tc.Username = username
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tc.IssuedAt = iat.Time
	}

	return tc, nil
}

// DisplayName returns the best available name for the token's subject
func (c *TokenClaims) DisplayName() string {
	if c.Username != "" {
		return c.Username
	}
	if c.Name != "" {
		return c.Name
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}
