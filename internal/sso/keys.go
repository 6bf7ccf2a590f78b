package sso

import (
	"crypto/sha1" // #nosec G505 - file naming only, matches the AWS SSO cache layout
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CacheKey addresses a client registration and an access token in a Cache.
//
// It is a closed sum type: LegacyKey or ScopedKey. A Provider resolves its key
// once at construction and passes it to every cache call.
type CacheKey interface {
	// RegistrationCacheID is the storage id of the client registration
	RegistrationCacheID() string
	// TokenCacheID is the storage id of the access token
	TokenCacheID() string

	cacheKey()
}

// LegacyKey is used when no scopes were requested. Registrations are shared
// per region and tokens per start URL, as in pre-scope installations.
type LegacyKey struct {
	Region   string
	StartURL string
}

func (LegacyKey) cacheKey() {}

func (k LegacyKey) RegistrationCacheID() string {
	return fmt.Sprintf("%s-client-id-%s", ToolName, k.Region)
}

func (k LegacyKey) TokenCacheID() string {
	return sha1Hex(k.StartURL)
}

func (k LegacyKey) String() string {
	return fmt.Sprintf("legacy(region=%s)", k.Region)
}

// ScopedKey is used when scopes were requested
type ScopedKey struct {
	ConnectionID string
	StartURL     string
	Region       string
	// Scopes is sorted and de-duplicated
	Scopes []string
}

// NewScopedKey builds a ScopedKey, normalising scopes into an ordered set
func NewScopedKey(connectionID, startURL, region string, scopes []string) ScopedKey {
	return ScopedKey{
		ConnectionID: connectionID,
		StartURL:     startURL,
		Region:       region,
		Scopes:       normalizeScopes(scopes),
	}
}

func (ScopedKey) cacheKey() {}

func (k ScopedKey) RegistrationCacheID() string {
	return sha1JSON(struct {
		Region   string   `json:"region"`
		Scopes   []string `json:"scopes"`
		StartURL string   `json:"startUrl"`
		Tool     string   `json:"tool"`
	}{k.Region, k.Scopes, k.StartURL, ToolName})
}

func (k ScopedKey) TokenCacheID() string {
	return sha1JSON(struct {
		ConnectionID string   `json:"connectionId"`
		Scopes       []string `json:"scopes"`
		StartURL     string   `json:"startUrl"`
	}{k.ConnectionID, k.Scopes, k.StartURL})
}

func (k ScopedKey) String() string {
	return fmt.Sprintf("scoped(connection=%s, scopes=%s)", k.ConnectionID, strings.Join(k.Scopes, ","))
}

// Settings identify the connection a Provider serves
type Settings struct {
	ConnectionID string
	StartURL     string
	Region       string
	Scopes       []string
	// ClientName overrides DefaultClientName
	ClientName string
}

// NewCacheKey picks the key shape for settings: LegacyKey when no scopes are
// configured, ScopedKey otherwise.
func NewCacheKey(s Settings) CacheKey {
	scopes := normalizeScopes(s.Scopes)
	if len(scopes) == 0 {
		return LegacyKey{Region: s.Region, StartURL: s.StartURL}
	}
	return ScopedKey{
		ConnectionID: s.ConnectionID,
		StartURL:     s.StartURL,
		Region:       s.Region,
		Scopes:       scopes,
	}
}

func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) // #nosec G401
	return hex.EncodeToString(sum[:])
}

func sha1JSON(v interface{}) string {
	// Marshalling a struct of strings and string slices cannot fail
	data, _ := json.Marshal(v)
	return sha1Hex(string(data))
}
