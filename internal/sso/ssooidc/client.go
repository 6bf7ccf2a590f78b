// Package ssooidc implements sso.OIDCClient on top of the AWS SDK SSO OIDC client.
package ssooidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssooidc "github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc/types"
	"github.com/aws/smithy-go"

	"github.com/fastertools/ftl-sso/internal/logging"
	"github.com/fastertools/ftl-sso/internal/sso"
)

// API is the subset of the SDK client used here
type API interface {
	RegisterClient(ctx context.Context, params *awsssooidc.RegisterClientInput, optFns ...func(*awsssooidc.Options)) (*awsssooidc.RegisterClientOutput, error)
	StartDeviceAuthorization(ctx context.Context, params *awsssooidc.StartDeviceAuthorizationInput, optFns ...func(*awsssooidc.Options)) (*awsssooidc.StartDeviceAuthorizationOutput, error)
	CreateToken(ctx context.Context, params *awsssooidc.CreateTokenInput, optFns ...func(*awsssooidc.Options)) (*awsssooidc.CreateTokenOutput, error)
}

// Client adapts the SDK client to sso.OIDCClient
type Client struct {
	api API
}

var _ sso.OIDCClient = (*Client)(nil)

// New creates a Client for region. The OIDC operations are unauthenticated,
// so anonymous credentials are used and no AWS profile is required.
// endpoint overrides the service URL when not empty.
func New(ctx context.Context, region, endpoint string, optFns ...func(*awsssooidc.Options)) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint != "" {
		optFns = append([]func(*awsssooidc.Options){func(o *awsssooidc.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}}, optFns...)
	}

	return NewFromAPI(awsssooidc.NewFromConfig(cfg, optFns...)), nil
}

// NewFromAPI wraps an existing SDK client
func NewFromAPI(api API) *Client {
	return &Client{api: api}
}

func (c *Client) RegisterClient(ctx context.Context, req sso.RegisterClientRequest) (*sso.RegisterClientResponse, error) {
	out, err := c.api.RegisterClient(ctx, &awsssooidc.RegisterClientInput{
		ClientName: aws.String(req.ClientName),
		ClientType: aws.String(req.ClientType),
		Scopes:     req.Scopes,
	})
	if err != nil {
		return nil, translateError(err)
	}
	if aws.ToString(out.ClientId) == "" {
		return nil, fmt.Errorf("register client response has no client id")
	}

	return &sso.RegisterClientResponse{
		ClientID:              aws.ToString(out.ClientId),
		ClientSecret:          aws.ToString(out.ClientSecret),
		ClientSecretExpiresAt: out.ClientSecretExpiresAt,
	}, nil
}

func (c *Client) StartDeviceAuthorization(ctx context.Context, req sso.StartDeviceAuthorizationRequest) (*sso.DeviceAuthorizationResponse, error) {
	out, err := c.api.StartDeviceAuthorization(ctx, &awsssooidc.StartDeviceAuthorizationInput{
		ClientId:     aws.String(req.ClientID),
		ClientSecret: aws.String(req.ClientSecret),
		StartUrl:     aws.String(req.StartURL),
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &sso.DeviceAuthorizationResponse{
		DeviceCode:              aws.ToString(out.DeviceCode),
		UserCode:                aws.ToString(out.UserCode),
		VerificationURI:         aws.ToString(out.VerificationUri),
		VerificationURIComplete: aws.ToString(out.VerificationUriComplete),
		ExpiresIn:               out.ExpiresIn,
		Interval:                out.Interval,
	}, nil
}

// CreateToken never returns a Go error: pending and slow_down become their
// own result kinds, everything else is Fatal.
func (c *Client) CreateToken(ctx context.Context, req sso.CreateTokenRequest) sso.TokenResult {
	in := &awsssooidc.CreateTokenInput{
		ClientId:     aws.String(req.ClientID),
		ClientSecret: aws.String(req.ClientSecret),
		GrantType:    aws.String(req.GrantType),
	}
	if req.DeviceCode != "" {
		in.DeviceCode = aws.String(req.DeviceCode)
	}
	if req.RefreshToken != "" {
		in.RefreshToken = aws.String(req.RefreshToken)
	}

	out, err := c.api.CreateToken(ctx, in)
	if err != nil {
		var pending *types.AuthorizationPendingException
		if errors.As(err, &pending) {
			return sso.Pending()
		}
		var slow *types.SlowDownException
		if errors.As(err, &slow) {
			return sso.SlowDown()
		}
		logging.Debug("OIDC", "CreateToken (%s) failed: %v", req.GrantType, err)
		return sso.Fatal(translateError(err))
	}

	return sso.Issued(&sso.TokenGrant{
		AccessToken:  aws.ToString(out.AccessToken),
		RefreshToken: aws.ToString(out.RefreshToken),
		ExpiresIn:    out.ExpiresIn,
	})
}

// exceptionCodes maps service exception names to OAuth error codes
var exceptionCodes = map[string]string{
	"AuthorizationPendingException": sso.CodeAuthorizationPending,
	"SlowDownException":             sso.CodeSlowDown,
	"InvalidClientException":        sso.CodeInvalidClient,
	"UnauthorizedClientException":   sso.CodeUnauthorizedClient,
	"InvalidRequestException":       sso.CodeInvalidRequest,
	"InvalidGrantException":         sso.CodeInvalidGrant,
	"ExpiredTokenException":         sso.CodeExpiredToken,
	"AccessDeniedException":         sso.CodeAccessDenied,
}

// translateError turns SDK errors into *sso.OIDCError so callers can match
// them with errors.Is against the sso sentinels. Transport errors pass through.
func translateError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	code, ok := exceptionCodes[apiErr.ErrorCode()]
	if !ok {
		code = apiErr.ErrorCode()
	}
	return sso.NewOIDCError(code, apiErr.ErrorMessage(), err)
}
