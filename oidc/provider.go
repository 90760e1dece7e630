// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// Provider provides integration with an OIDC provider for one relying party
// profile. It builds authentication and logout requests, exchanges codes and
// verifies the tokens the provider issues.
//
// Provider metadata is discovered once, by NewProvider. Signing keys are not:
// every id_token and logout token is verified against a freshly fetched key
// set.
type Provider struct {
	config     *Config
	provider   *oidc.Provider
	metadata   discoveryMetadata
	signingKey *SigningKey
	logger     hclog.Logger
	nowFunc    func() time.Time

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like: discovery.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// discoveryMetadata holds the discovery claims go-oidc doesn't expose.
type discoveryMetadata struct {
	Issuer             string `json:"issuer"`
	AuthURL            string `json:"authorization_endpoint"`
	TokenURL           string `json:"token_endpoint"`
	JWKSURL            string `json:"jwks_uri"`
	UserInfoURL        string `json:"userinfo_endpoint"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// NewProvider creates and initializes a Provider. Initializing the provider
// includes an http request to the provider's discovery endpoint, bounded by
// DefaultValidationTimeout.
//
// See Provider.Done() which must be called to release provider resources.
//
// Supported options:
//   - WithLogger
//   - WithNow
func NewProvider(c *Config, opt ...Option) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getProviderOpts(opt...)

	signingKey, err := NewSigningKey(c.SigningKey, c.SigningKeyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with it's background ctx/cancel will
	// allow us to use p.Done() to release any resources when returning errors
	// from this function.
	p := &Provider{
		config:              c,
		signingKey:          signingKey,
		logger:              opts.withLogger,
		nowFunc:             opts.withNowFunc,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}
	if p.nowFunc == nil {
		p.nowFunc = c.Now
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	discoveryCtx, discoveryCancel := context.WithTimeout(p.backgroundCtx, DefaultValidationTimeout)
	defer discoveryCancel()
	provider, err := oidc.NewProvider(HTTPClientContext(discoveryCtx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		p.logger.Error("unable to load provider metadata", "issuer", c.Issuer, "error", err)
		return nil, fmt.Errorf("%s: unable to create provider: %w: %w", op, ErrDiscoveryFailed, err)
	}
	p.provider = provider
	if err := provider.Claims(&p.metadata); err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to read provider metadata: %w: %w", op, ErrDiscoveryFailed, err)
	}
	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	// checking for nil here prevents a panic when developers neglect to check
	// the for an error before deferring a call to p.Done():
	// p, err := NewProvider(...)
	// defer p.Done()
	// if err != nil { ... }
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// Config returns the profile the Provider was created with.
func (p *Provider) Config() *Config { return p.config }

// SigningKey returns the relying party's parsed signing key.
func (p *Provider) SigningKey() *SigningKey { return p.signingKey }

// Issuer returns the issuer from the provider's discovery document.
func (p *Provider) Issuer() string { return p.metadata.Issuer }

// Endpoint returns the provider's oauth2 endpoints.
func (p *Provider) Endpoint() oauth2.Endpoint { return p.provider.Endpoint() }

// EndSessionEndpoint returns the discovered end_session_endpoint, if any.
func (p *Provider) EndSessionEndpoint() string { return p.metadata.EndSessionEndpoint }

func (p *Provider) now() time.Time { return p.nowFunc() }

// VerifyIDToken verifies the id_token's signature against a freshly fetched
// provider key set, and checks its issuer, audience (the client id),
// algorithm (the profile's IDTokenSigningAlg) and expiry. The verified claims
// are returned.
//
// Supported options:
//   - WithNonce, the nonce claim must equal it
func (p *Provider) VerifyIDToken(ctx context.Context, t IDToken, opt ...Option) (map[string]interface{}, error) {
	const op = "Provider.VerifyIDToken"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getVerifyOpts(opt...)
	p.logger.Info("validating id_token")

	ctx, cancel := context.WithTimeout(ctx, DefaultValidationTimeout)
	defer cancel()
	verifier, err := p.verifier(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idToken, err := verifier.Verify(ctx, string(t))
	if err != nil {
		p.logger.Error("unexpected error validating id_token", "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if opts.withNonce != "" && idToken.Nonce != opts.withNonce {
		return nil, fmt.Errorf("%s: id_token nonce does not match: %w: %w", op, ErrIDTokenVerificationFailed, ErrInvalidNonce)
	}
	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to get id_token claims: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	return claims, nil
}

// verifier returns an oidc verifier bound to a new, uncached remote key set.
// The key set fetches with ctx, so ctx should carry the validation deadline.
func (p *Provider) verifier(ctx context.Context, skipExpiry bool) (*oidc.IDTokenVerifier, error) {
	client, err := p.config.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}
	keySet := oidc.NewRemoteKeySet(HTTPClientContext(ctx, client), p.metadata.JWKSURL)
	v := oidc.NewVerifier(p.metadata.Issuer, keySet, &oidc.Config{
		ClientID:             p.config.ClientID,
		SupportedSigningAlgs: []string{string(p.config.IDTokenSigningAlg)},
		SkipExpiryCheck:      skipExpiry,
		Now:                  p.now,
	})
	return v, nil
}

// UserInfo fetches the end user's claims from the provider's userinfo
// endpoint with the access token.
func (p *Provider) UserInfo(ctx context.Context, t AccessToken) (*UserInfo, error) {
	const op = "Provider.UserInfo"
	if t == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrInvalidParameter)
	}
	client, err := p.config.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.logger.Info("making userinfo request")
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(t), TokenType: "Bearer"})
	info, err := p.provider.UserInfo(HTTPClientContext(ctx, client), tokenSource)
	if err != nil {
		p.logger.Error("userinfo request was unsuccessful", "error", err)
		return nil, fmt.Errorf("%s: provider UserInfo request failed: %w: %w", op, ErrUserInfoFailed, err)
	}
	u, err := newUserInfo(info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	p.logger.Info("userinfo request was successful")
	return u, nil
}

// providerOptions is the set of available options
type providerOptions struct {
	withLogger  hclog.Logger
	withNowFunc func() time.Time
}

// providerDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func providerDefaults() providerOptions {
	return providerOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getProviderOpts gets the defaults and applies the opt overrides passed
// in.
func getProviderOpts(opt ...Option) providerOptions {
	opts := providerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// verifyOptions is the set of available options for VerifyIDToken
type verifyOptions struct {
	withNonce string
}

func getVerifyOpts(opt ...Option) verifyOptions {
	opts := verifyOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}
