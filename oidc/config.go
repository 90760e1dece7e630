// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	sdkHttp "github.com/rpstub/cap/sdk/http"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// ClientType distinguishes a regular web relying party from the document
// checking app client.
type ClientType string

const (
	WebClient ClientType = "web"
	AppClient ClientType = "app"
)

// DefaultValidationTimeout bounds discovery and every remote key set fetch.
const DefaultValidationTimeout = 30 * time.Second

// Config is one relying party profile. A Config is immutable once it's been
// handed to NewProvider.
type Config struct {
	// ClientID is the relying party's client id at the provider.
	ClientID string

	// ClientType is either web or app. Empty is treated as web.
	ClientType ClientType

	// ClientSecret is optional. When set the token request authenticates with
	// client_secret_post, otherwise with a private_key_jwt client assertion.
	ClientSecret ClientSecret

	// Issuer is the provider's base URL and discovery issuer.
	Issuer string

	// SigningKey is the relying party's private key, either PEM or the base64
	// of its PKCS#8 DER.
	SigningKey string

	// SigningKeyID is the kid the SigningKey's public half is published under.
	SigningKeyID string

	// IDTokenSigningAlg is the only algorithm accepted on id_tokens and logout
	// tokens.
	IDTokenSigningAlg Alg

	// IdentitySigningKeyURL is the optional did:web key-discovery document used
	// to validate core identity assertions. Empty disables that validation.
	IdentitySigningKeyURL string

	// InheritedIdentitySigningKey is the optional base64 PKCS#8 EC key used to
	// sign inherited identity assertions.
	InheritedIdentitySigningKey string

	// RedirectURL is the authorization callback.
	RedirectURL string

	// PostLogoutRedirectURL is where the provider sends the user after logout.
	PostLogoutRedirectURL string

	AccountManagementURL string
	ServiceName          string

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time
}

// NewConfig composes a new config for a relying party profile.
//
// Supported options:
//   - WithClientSecret
//   - WithClientType
//   - WithSigningKeyID
//   - WithIDTokenSigningAlg
//   - WithIdentitySigningKeyURL
//   - WithInheritedIdentitySigningKey
//   - WithPostLogoutRedirectURL
//   - WithAccountManagementURL
//   - WithServiceName
//   - WithProviderCA
//   - WithNow
func NewConfig(issuer, clientID, signingKey, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:                      issuer,
		ClientID:                    clientID,
		SigningKey:                  signingKey,
		RedirectURL:                 redirectURL,
		ClientSecret:                opts.withClientSecret,
		ClientType:                  opts.withClientType,
		SigningKeyID:                opts.withSigningKeyID,
		IDTokenSigningAlg:           opts.withIDTokenSigningAlg,
		IdentitySigningKeyURL:       opts.withIdentitySigningKeyURL,
		InheritedIdentitySigningKey: opts.withInheritedIdentitySigningKey,
		PostLogoutRedirectURL:       opts.withPostLogoutRedirectURL,
		AccountManagementURL:        opts.withAccountManagementURL,
		ServiceName:                 opts.withServiceName,
		ProviderCA:                  opts.withProviderCA,
		NowFunc:                     opts.withNowFunc,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration. All problems are reported together.
// It doesn't verify the Issuer is discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client ID is empty: %w", ErrInvalidParameter))
	}
	if err := validateURL("issuer", c.Issuer, true); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateURL("redirect URL", c.RedirectURL, true); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateURL("post logout redirect URL", c.PostLogoutRedirectURL, false); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateURL("identity signing key URL", c.IdentitySigningKeyURL, false); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := ParsePrivateKey(c.SigningKey); err != nil {
		result = multierror.Append(result, fmt.Errorf("signing key: %w", err))
	}
	if c.InheritedIdentitySigningKey != "" {
		if _, err := ParsePrivateKey(c.InheritedIdentitySigningKey); err != nil {
			result = multierror.Append(result, fmt.Errorf("inherited identity signing key: %w", err))
		}
	}
	if !c.IDTokenSigningAlg.Supported() {
		result = multierror.Append(result, fmt.Errorf("id_token signing alg %q: %w", c.IDTokenSigningAlg, ErrUnsupportedAlg))
	}
	switch c.ClientType {
	case "", WebClient, AppClient:
	default:
		result = multierror.Append(result, fmt.Errorf("client type %q: %w", c.ClientType, ErrUnsupportedClientType))
	}
	if c.ProviderCA != "" {
		if _, err := c.HTTPClient(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateURL(name, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q is invalid: %w", name, raw, ErrInvalidParameter)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s %q scheme is not http or https: %w", name, raw, ErrInvalidParameter)
	}
	return nil
}

// Now will return the current time which can be overridden by the NowFunc.
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now() // fallback to this default
}

// HTTPClient creates a new http client for the provider, honouring
// ProviderCA and bounded by DefaultValidationTimeout.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, DefaultValidationTimeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext returns a new Context that carries the provided HTTP
// client. It uses the same context key as github.com/coreos/go-oidc and
// golang.org/x/oauth2, so the returned context works for both.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	return sdkHttp.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withClientSecret                ClientSecret
	withClientType                  ClientType
	withSigningKeyID                string
	withIDTokenSigningAlg           Alg
	withIdentitySigningKeyURL       string
	withInheritedIdentitySigningKey string
	withPostLogoutRedirectURL       string
	withAccountManagementURL        string
	withServiceName                 string
	withProviderCA                  string
	withNowFunc                     func() time.Time
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withClientType:        WebClient,
		withIDTokenSigningAlg: ES256,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret switches token requests to client_secret_post.
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithClientType provides an optional client type, the default is web.
func WithClientType(t ClientType) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && t != "" {
			o.withClientType = ClientType(strings.ToLower(string(t)))
		}
	}
}

// WithSigningKeyID sets the kid of the signing key.
func WithSigningKeyID(kid string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSigningKeyID = kid
		}
	}
}

// WithIDTokenSigningAlg overrides the default ES256 id_token alg.
func WithIDTokenSigningAlg(alg Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && alg != "" {
			o.withIDTokenSigningAlg = alg
		}
	}
}

// WithIdentitySigningKeyURL enables core identity validation against the
// key-discovery document at u.
func WithIdentitySigningKeyURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withIdentitySigningKeyURL = u
		}
	}
}

// WithInheritedIdentitySigningKey sets the key used for inherited identity
// assertions.
func WithInheritedIdentitySigningKey(k string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withInheritedIdentitySigningKey = k
		}
	}
}

func WithPostLogoutRedirectURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPostLogoutRedirectURL = u
		}
	}
}

func WithAccountManagementURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAccountManagementURL = u
		}
	}
}

func WithServiceName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withServiceName = name
		}
	}
}

// WithProviderCA provides optional CA certs (PEM encoded) for the provider's
// config. These certs will can be used when making http requests to the
// provider.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
