package cli

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/fastertools/ftl-sso/internal/config"
	"github.com/fastertools/ftl-sso/internal/logging"
	"github.com/fastertools/ftl-sso/internal/sso"
	"github.com/fastertools/ftl-sso/internal/sso/ssooidc"
	"github.com/fastertools/ftl-sso/internal/ssocache"
	"github.com/fastertools/ftl-sso/internal/telemetry"
)

// newOIDCClient builds the OIDC client; tests swap it for a fake server client
var newOIDCClient = func(ctx context.Context, region, endpoint string) (sso.OIDCClient, error) {
	return ssooidc.New(ctx, region, endpoint)
}

// session bundles everything a command needs to talk to one SSO connection
type session struct {
	profile  config.Profile
	cache    *ssocache.Cache
	provider *sso.Provider
	recorder *telemetry.Recorder
}

// openSession resolves the selected profile and wires cache, client and provider
func openSession(ctx context.Context, opts ...sso.Option) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	profile, err := cfg.ResolveProfile(viper.GetString("profile"))
	if err != nil {
		return nil, err
	}

	backend := viper.GetString("cache")
	if backend == "" {
		backend = cfg.Preferences.CacheBackend
	}

	cache, err := ssocache.Open(ctx, ssocache.Options{
		Backend:       backend,
		Dir:           viper.GetString("cache-dir"),
		RedisAddr:     viper.GetString("redis-addr"),
		RedisPassword: viper.GetString("redis-password"),
		RedisDB:       viper.GetInt("redis-db"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", backend, err)
	}

	client, err := newOIDCClient(ctx, profile.Region, viper.GetString("oidc-endpoint"))
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	recorder := telemetry.NewRecorder()
	opts = append([]sso.Option{sso.WithTelemetry(recorder)}, opts...)

	provider, err := sso.NewProvider(profile.Settings(), client, cache, opts...)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	Debug("Profile %s uses %s cache, key %s", profile.Name, cache.Name(), provider.Key())

	return &session{
		profile:  profile,
		cache:    cache,
		provider: provider,
		recorder: recorder,
	}, nil
}

// tokenSource wraps the provider with refresh handling
func (s *session) tokenSource(ctx context.Context, interactive bool) *sso.TokenSource {
	return sso.NewTokenSource(ctx, s.provider, sso.TokenSourceOptions{Interactive: interactive})
}

// close exports metrics and releases the cache
func (s *session) close() {
	if path := viper.GetString("metrics-file"); path != "" {
		if err := s.recorder.WriteTextfile(path); err != nil {
			logging.Warn("CLI", "Failed to write metrics to %s: %v", path, err)
		}
	}
	if err := s.cache.Close(); err != nil {
		logging.Debug("CLI", "Failed to close cache: %v", err)
	}
}
