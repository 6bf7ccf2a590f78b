package sso

import (
	"context"
	"fmt"
	"time"

	"github.com/fastertools/ftl-sso/internal/logging"
)

// Poller waits for the user to approve a device authorization
type Poller struct {
	client   OIDCClient
	clock    Clock
	sleeper  Sleeper
	startURL string
	region   string
}

// NewPoller creates a Poller issuing tokens for startURL in region
func NewPoller(client OIDCClient, clock Clock, sleeper Sleeper, startURL, region string) *Poller {
	if clock == nil {
		clock = SystemClock
	}
	if sleeper == nil {
		sleeper = CancellableSleeper{}
	}
	return &Poller{
		client:   client,
		clock:    clock,
		sleeper:  sleeper,
		startURL: startURL,
		region:   region,
	}
}

// PollForToken polls the token endpoint until the authorization is approved
// or fails.
//
// authorization_pending keeps the interval, slow_down grows it by
// SlowDownIncrement for the rest of the flow. Any other outcome, including a
// cancelled sleep, is reported to cb.OnFailed and returned. The loop has no
// deadline of its own; bound it with ctx.
func (p *Poller) PollForToken(ctx context.Context, reg *ClientRegistration, auth *Authorization, cb LoginCallback) (*AccessToken, error) {
	if cb == nil {
		cb = NopCallback{}
	}

	cb.OnWaitingForApproval(auth.Prompt())

	interval := auth.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	req := CreateTokenRequest{
		GrantType:    GrantTypeDeviceCode,
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		DeviceCode:   auth.DeviceCode,
	}

	for attempt := 1; ; attempt++ {
		res := p.client.CreateToken(ctx, req)

		switch res.Kind {
		case TokenIssued:
			token, err := newAccessToken(res.Grant, p.startURL, p.region, "", auth.CreatedAt, p.clock.Now())
			if err != nil {
				cb.OnFailed(err)
				return nil, err
			}
			logging.Info("Poller", "Authorization approved after %d attempts", attempt)
			cb.OnApproved()
			return token, nil
		case TokenPending:
			logging.Debug("Poller", "Authorization pending, retrying in %s", interval)
		case TokenSlowDown:
			interval += SlowDownIncrement
			logging.Debug("Poller", "Server asked to slow down, interval now %s", interval)
		default:
			err := fmt.Errorf("failed to create token: %w", res.Error())
			cb.OnFailed(err)
			return nil, err
		}

		if err := p.sleeper.Sleep(ctx, interval); err != nil {
			logging.Info("Poller", "Polling stopped: %v", err)
			cb.OnFailed(err)
			return nil, err
		}
	}
}

// newAccessToken builds an AccessToken from a grant. An empty refresh token in
// the grant falls back to previousRefresh.
func newAccessToken(grant *TokenGrant, startURL, region, previousRefresh string, createdAt, now time.Time) (*AccessToken, error) {
	if grant == nil || grant.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access token")
	}
	if grant.ExpiresIn <= 0 {
		return nil, fmt.Errorf("token response has invalid expiry %d", grant.ExpiresIn)
	}

	refresh := grant.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return &AccessToken{
		StartURL:     startURL,
		Region:       region,
		AccessToken:  grant.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		CreatedAt:    createdAt,
	}, nil
}
