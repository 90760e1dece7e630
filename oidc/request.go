// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/rpstub/cap/oidc/internal/strutils"
	"golang.org/x/text/language"
)

// Request basically represents one OIDC authentication attempt for a user.
// It carries everything needed to build the authentication redirect, and the
// State() and Nonce() the callback must be matched against.
type Request interface {
	// State is a unique identifier and an opaque value used to maintain
	// request between the oidc request and the callback.
	State() string

	// Nonce is a unique nonce and a string value used to associate a Client
	// session with an ID Token, and to mitigate replay attacks.
	Nonce() string

	// RedirectURL is the URL the provider redirects to with the code.
	RedirectURL() string

	// Scopes always begins with "openid".
	Scopes() []string

	VTR() VTR

	// ClaimsRequest is never nil, it may be empty.
	ClaimsRequest() *ClaimsRequest

	// UILocales holds the parsed language, empty when none was given or it
	// couldn't be parsed.
	UILocales() []language.Tag

	Prompts() []Prompt
	RPSID() string
	IDTokenHint() IDToken

	// MaxAge is kept verbatim, it's only required to be an integer when
	// emitted as a query parameter.
	MaxAge() string

	PKCEVerifier() CodeVerifier
	LoginHint() string

	// Channel returns the channel and whether one was set at all. A set
	// channel is emitted even when it's empty.
	Channel() (string, bool)

	// CreatedAt is when the request was built.
	CreatedAt() time.Time
}

// Req represents the oidc request used for oidc flows and implements the
// Request interface.
type Req struct {
	state       string
	nonce       string
	redirectURL string
	scopes      []string
	vtr         VTR
	claims      *ClaimsRequest
	uiLocales   []language.Tag
	prompts     []Prompt
	rpSID       string
	idTokenHint IDToken
	maxAge      string
	verifier    CodeVerifier
	loginHint   string
	channel     *string
	createdAt   time.Time
}

var _ Request = (*Req)(nil)

// NewRequest creates a new Request (*Req) with a fresh state and nonce
// unless they're provided as options.
//
// Supported Options:
//   - WithState
//   - WithNonce
//   - WithScopes
//   - WithVTR
//   - WithClaimsRequest
//   - WithUILocales
//   - WithPrompts
//   - WithRPSID
//   - WithIDTokenHint
//   - WithMaxAge
//   - WithPKCE
//   - WithLoginHint
//   - WithChannel
//   - WithNow
//   - WithLogger
func NewRequest(redirectURL string, opt ...Option) (*Req, error) {
	const op = "oidc.NewRequest"
	opts := getReqOpts(opt...)
	u, err := url.Parse(redirectURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%s: redirect URL %q is not an absolute URL: %w", op, redirectURL, ErrInvalidParameter)
	}
	if err := validatePrompts(opts.withPrompts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if opts.withVerifier != nil && opts.withVerifier.Method() == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingChallengeMethod)
	}

	state := opts.withState
	if state == "" {
		if state, err = NewID(); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
		}
	}
	nonce := opts.withNonce
	if nonce == "" {
		if nonce, err = NewID(); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
		}
	}
	if state == nonce {
		return nil, fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}

	claims := opts.withClaims
	if claims == nil {
		claims = NewClaimsRequest()
	}

	r := &Req{
		state:       state,
		nonce:       nonce,
		redirectURL: redirectURL,
		scopes:      strutils.RemoveDuplicatesStable(append([]string{oidc.ScopeOpenID}, opts.withScopes...), false),
		vtr:         opts.withVTR,
		claims:      claims,
		uiLocales:   parseUILocales(opts.withLogger, opts.withUILocales),
		prompts:     opts.withPrompts,
		rpSID:       strings.TrimSpace(opts.withRPSID),
		idTokenHint: IDToken(strings.TrimSpace(string(opts.withIDTokenHint))),
		maxAge:      strings.TrimSpace(opts.withMaxAge),
		verifier:    opts.withVerifier,
		loginHint:   strings.TrimSpace(opts.withLoginHint),
		channel:     opts.withChannel,
		createdAt:   opts.withNowFunc(),
	}
	return r, nil
}

func parseUILocales(logger hclog.Logger, raw string) []language.Tag {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		logger.Error("unable to parse language", "ui_locales", raw, "error", err)
		return nil
	}
	logger.Info("adding ui_locales to authorize request", "ui_locales", tag.String())
	return []language.Tag{tag}
}

func (r *Req) State() string                 { return r.state }
func (r *Req) Nonce() string                 { return r.nonce }
func (r *Req) RedirectURL() string           { return r.redirectURL }
func (r *Req) Scopes() []string              { return r.scopes }
func (r *Req) VTR() VTR                      { return r.vtr }
func (r *Req) ClaimsRequest() *ClaimsRequest { return r.claims }
func (r *Req) UILocales() []language.Tag     { return r.uiLocales }
func (r *Req) Prompts() []Prompt             { return r.prompts }
func (r *Req) RPSID() string                 { return r.rpSID }
func (r *Req) IDTokenHint() IDToken          { return r.idTokenHint }
func (r *Req) MaxAge() string                { return r.maxAge }
func (r *Req) PKCEVerifier() CodeVerifier    { return r.verifier }
func (r *Req) LoginHint() string             { return r.loginHint }
func (r *Req) CreatedAt() time.Time          { return r.createdAt }

func (r *Req) Channel() (string, bool) {
	if r.channel == nil {
		return "", false
	}
	return *r.channel, true
}

// reqOptions is the set of available options for Req functions
type reqOptions struct {
	withState       string
	withNonce       string
	withScopes      []string
	withVTR         VTR
	withClaims      *ClaimsRequest
	withUILocales   string
	withPrompts     []Prompt
	withRPSID       string
	withIDTokenHint IDToken
	withMaxAge      string
	withVerifier    CodeVerifier
	withLoginHint   string
	withChannel     *string
	withNowFunc     func() time.Time
	withLogger      hclog.Logger
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{
		withNowFunc: time.Now,
		withLogger:  hclog.NewNullLogger(),
	}
}

// getReqOpts gets the request defaults and applies the opt overrides passed in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithState overrides the generated state.
//
// Valid for: Request
func WithState(s string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withState = s
		}
	}
}

// WithScopes provides an optional list of scopes. "openid" is always requested
// first.
//
// Valid for: Request
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithVTR provides the vector of trust request, see BuildVTR.
//
// Valid for: Request
func WithVTR(v VTR) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withVTR = v
		}
	}
}

// WithClaimsRequest provides the userinfo claims request.
//
// Valid for: Request
func WithClaimsRequest(c *ClaimsRequest) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withClaims = c
		}
	}
}

// WithUILocales provides the end user's preferred language as a BCP 47 tag.
// A value that can't be parsed is logged and left out of the request.
//
// Valid for: Request
func WithUILocales(lang string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withUILocales = lang
		}
	}
}

// WithPrompts provides an optional list of values that specifies whether the
// Authorization Server prompts the End-User for reauthentication and consent.
// See ParsePrompts.
//
// Valid for: Request
func WithPrompts(prompts ...Prompt) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withPrompts = prompts
		}
	}
}

// WithRPSID provides the relying party's session id.
//
// Valid for: Request
func WithRPSID(sid string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withRPSID = sid
		}
	}
}

// WithIDTokenHint provides a previously issued id_token, used for
// reauthentication.
//
// Valid for: Request
func WithIDTokenHint(t IDToken) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withIDTokenHint = t
		}
	}
}

// WithMaxAge provides the max_age value verbatim.
//
// Valid for: Request
func WithMaxAge(seconds string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withMaxAge = seconds
		}
	}
}

// WithPKCE provides a code verifier. A verifier without a challenge method
// makes NewRequest fail with ErrMissingChallengeMethod.
//
// Valid for: Request
//
// See: https://tools.ietf.org/html/rfc7636
func WithPKCE(v CodeVerifier) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withVerifier = v
		}
	}
}

// WithLoginHint provides a login_hint. It's only ever sent inside a signed
// request object.
//
// Valid for: Request
func WithLoginHint(hint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withLoginHint = hint
		}
	}
}

// WithChannel provides the channel the user is authenticating through.
//
// Valid for: Request
func WithChannel(channel string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withChannel = &channel
		}
	}
}
