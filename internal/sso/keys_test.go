package sso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewCacheKey(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		legacy   bool
	}{
		{name: "no scopes", settings: legacySettings(), legacy: true},
		{name: "blank scopes", settings: Settings{StartURL: "u", Region: "r", Scopes: []string{"", "  "}}, legacy: true},
		{name: "scoped", settings: scopedSettings(), legacy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewCacheKey(tt.settings)
			_, isLegacy := key.(LegacyKey)
			assert.Equal(t, tt.legacy, isLegacy)
		})
	}
}

func TestLegacyKey_IDs(t *testing.T) {
	key := LegacyKey{Region: "us-east-1", StartURL: "https://example.awsapps.com/start"}

	assert.Equal(t, "ftl-sso-client-id-us-east-1", key.RegistrationCacheID())
	assert.Len(t, key.TokenCacheID(), 40)
	assert.Equal(t, sha1Hex("https://example.awsapps.com/start"), key.TokenCacheID())

	other := LegacyKey{Region: "us-east-1", StartURL: "https://other.awsapps.com/start"}
	assert.Equal(t, key.RegistrationCacheID(), other.RegistrationCacheID())
	assert.NotEqual(t, key.TokenCacheID(), other.TokenCacheID())
}

func TestScopedKey_IDs(t *testing.T) {
	a := NewScopedKey("conn-1", "https://example.awsapps.com/start", "us-east-1",
		[]string{"sso:account:access", "codewhisperer:completions"})
	b := NewScopedKey("conn-1", "https://example.awsapps.com/start", "us-east-1",
		[]string{"codewhisperer:completions", "sso:account:access", "sso:account:access"})

	assert.Equal(t, []string{"codewhisperer:completions", "sso:account:access"}, a.Scopes)
	assert.Equal(t, a.RegistrationCacheID(), b.RegistrationCacheID())
	assert.Equal(t, a.TokenCacheID(), b.TokenCacheID())
	assert.NotEqual(t, a.RegistrationCacheID(), a.TokenCacheID())

	otherConn := NewScopedKey("conn-2", a.StartURL, a.Region, a.Scopes)
	assert.Equal(t, a.RegistrationCacheID(), otherConn.RegistrationCacheID(), "registrations are shared across connections")
	assert.NotEqual(t, a.TokenCacheID(), otherConn.TokenCacheID())

	otherRegion := NewScopedKey(a.ConnectionID, a.StartURL, "eu-west-1", a.Scopes)
	assert.NotEqual(t, a.RegistrationCacheID(), otherRegion.RegistrationCacheID())
}

func TestScopedKey_ScopeOrderIrrelevant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scopes := rapid.SliceOfN(rapid.StringMatching(`[a-z:]{1,12}`), 1, 6).Draw(t, "scopes")
		perm := rapid.Permutation(scopes).Draw(t, "perm")

		a := NewScopedKey("c", "u", "r", scopes)
		b := NewScopedKey("c", "u", "r", perm)

		assert.Equal(t, a.RegistrationCacheID(), b.RegistrationCacheID())
		assert.Equal(t, a.TokenCacheID(), b.TokenCacheID())
	})
}

func TestCacheKey_StringDoesNotLeakStartURL(t *testing.T) {
	key := NewCacheKey(scopedSettings())
	assert.Contains(t, key.(ScopedKey).String(), "conn-1")
	assert.NotContains(t, LegacyKey{Region: "r", StartURL: "https://secret"}.String(), "secret")
}
