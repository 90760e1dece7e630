// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// RequestMode selects how an authentication request is sent.
type RequestMode string

const (
	// RequestModeQuery sends every parameter in the redirect URL.
	RequestModeQuery RequestMode = "query"

	// RequestModeObject sends the parameters as a signed request object
	// (JAR).
	RequestModeObject RequestMode = "object"
)

// ParseRequestMode parses "query" or "object". Blank means query.
func ParseRequestMode(s string) (RequestMode, error) {
	const op = "ParseRequestMode"
	switch RequestMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RequestModeQuery:
		return RequestModeQuery, nil
	case RequestModeObject:
		return RequestModeObject, nil
	default:
		return "", fmt.Errorf("%s: unknown request mode %q: %w", op, s, ErrInvalidParameter)
	}
}

const docAppScope = "doc-checking-app"

// AuthURL returns the URL the end user is redirected to in order to
// authenticate at the provider.
//
// In RequestModeObject the parameters are signed with the relying party's
// signing key and sent as the "request" parameter, alongside client_id,
// response_type and scope. login_hint and id_token_hint are only ever sent
// this way.
//
// In RequestModeQuery the other parameters are sent in the URL. The claims request
// is only sent when it has entries, and max_age must be an integer.
func (p *Provider) AuthURL(ctx context.Context, r Request, mode RequestMode) (string, error) {
	const op = "Provider.AuthURL"
	if r == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() == r.Nonce() {
		return "", fmt.Errorf("%s: request state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if v := r.PKCEVerifier(); v != nil && v.Method() == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingChallengeMethod)
	}
	if err := validatePrompts(r.Prompts()); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	switch mode {
	case RequestModeObject:
		p.logger.Info("building authorize request with JAR")
		return p.objectAuthURL(r)
	case RequestModeQuery, "":
		p.logger.Info("building authorize request with query params")
		return p.queryAuthURL(r)
	default:
		return "", fmt.Errorf("%s: unknown request mode %q: %w", op, mode, ErrInvalidParameter)
	}
}

func (p *Provider) queryAuthURL(r Request) (string, error) {
	const op = "Provider.queryAuthURL"
	oauth2Config := oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: r.RedirectURL(),
		Endpoint:    p.provider.Endpoint(),
		Scopes:      r.Scopes(),
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(r.Nonce()),
	}
	if len(r.VTR()) > 0 {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("vtr", r.VTR().String()))
	}
	if len(r.Prompts()) > 0 {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("prompt", promptString(r.Prompts())))
	}
	if v := r.PKCEVerifier(); v != nil {
		authCodeOpts = append(authCodeOpts,
			oauth2.SetAuthURLParam("code_challenge", v.Challenge()),
			oauth2.SetAuthURLParam("code_challenge_method", string(v.Method())),
		)
	}
	if r.ClaimsRequest().Len() > 0 {
		p.logger.Info("adding claims to authorize request")
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("claims", r.ClaimsRequest().String()))
	}
	if tags := r.UILocales(); len(tags) > 0 {
		locales := make([]string, 0, len(tags))
		for _, t := range tags {
			locales = append(locales, t.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	if r.RPSID() != "" {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("rp_sid", r.RPSID()))
	}
	if r.MaxAge() != "" {
		if _, err := strconv.Atoi(r.MaxAge()); err != nil {
			return "", fmt.Errorf("%s: max_age %q is not an integer: %w", op, r.MaxAge(), ErrInvalidParameter)
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("max_age", r.MaxAge()))
	}
	if channel, ok := r.Channel(); ok {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("channel", channel))
	}
	return oauth2Config.AuthCodeURL(r.State(), authCodeOpts...), nil
}

func (p *Provider) objectAuthURL(r Request) (string, error) {
	const op = "Provider.objectAuthURL"
	authEndpoint := p.provider.Endpoint().AuthURL
	vtr := []string(r.VTR())
	if vtr == nil {
		vtr = []string{}
	}
	claims := map[string]interface{}{
		"aud":           authEndpoint,
		"iss":           p.config.ClientID,
		"redirect_uri":  r.RedirectURL(),
		"response_type": "code",
		"scope":         strings.Join(r.Scopes(), " "),
		"nonce":         r.Nonce(),
		"client_id":     p.config.ClientID,
		"state":         r.State(),
		"vtr":           vtr,
		"claims":        r.ClaimsRequest().String(),
	}
	if len(r.Prompts()) > 0 {
		claims["prompt"] = promptString(r.Prompts())
	}
	if tags := r.UILocales(); len(tags) > 0 {
		locales := make([]string, 0, len(tags))
		for _, t := range tags {
			locales = append(locales, t.String())
		}
		claims["ui_locales"] = locales
	}
	if r.RPSID() != "" {
		claims["rp_sid"] = r.RPSID()
	}
	if r.IDTokenHint() != "" {
		claims["id_token_hint"] = string(r.IDTokenHint())
	}
	if r.MaxAge() != "" {
		claims["max_age"] = r.MaxAge()
	}
	if v := r.PKCEVerifier(); v != nil {
		claims["code_challenge"] = v.Challenge()
		claims["code_challenge_method"] = string(v.Method())
	}
	if r.LoginHint() != "" {
		claims["login_hint"] = r.LoginHint()
	}
	if channel, ok := r.Channel(); ok {
		claims["channel"] = channel
	}

	requestObject, err := p.signingKey.Sign(claims)
	if err != nil {
		p.logger.Error("unable to sign secure request object", "error", err)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return withQuery(authEndpoint, url.Values{
		"client_id":     {p.config.ClientID},
		"request":       {requestObject},
		"response_type": {"code"},
		"scope":         {strings.Join(r.Scopes(), " ")},
	})
}

// DocAppAuthURL returns the authentication URL for a document checking app
// profile. The signed request object carries a random subject, the
// "openid doc-checking-app" scope and the ui_locales value verbatim.
func (p *Provider) DocAppAuthURL(ctx context.Context, redirectURL, uiLocales string) (string, error) {
	const op = "Provider.DocAppAuthURL"
	if p.config.ClientType != AppClient {
		return "", fmt.Errorf("%s: client type %q is not %q: %w", op, p.config.ClientType, AppClient, ErrUnsupportedClientType)
	}
	if redirectURL == "" {
		redirectURL = p.config.RedirectURL
	}
	p.logger.Info("building secure authorize request", "client_type", p.config.ClientType)
	sub, err := NewID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate subject: %w", op, err)
	}
	state, err := NewID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	nonce, err := NewID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate nonce: %w", op, err)
	}
	authEndpoint := p.provider.Endpoint().AuthURL
	claims := map[string]interface{}{
		"aud":           authEndpoint,
		"sub":           sub,
		"iss":           p.config.ClientID,
		"redirect_uri":  redirectURL,
		"response_type": "code",
		"scope":         oidc.ScopeOpenID + " " + docAppScope,
		"nonce":         nonce,
		"client_id":     p.config.ClientID,
		"state":         state,
		"ui_locales":    uiLocales,
	}
	requestObject, err := p.signingKey.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return withQuery(authEndpoint, url.Values{
		"client_id":     {p.config.ClientID},
		"request":       {requestObject},
		"response_type": {"code"},
		"scope":         {oidc.ScopeOpenID},
	})
}

// withQuery adds the values to any query the endpoint already has.
func withQuery(endpoint string, v url.Values) (string, error) {
	const op = "withQuery"
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: endpoint %q is invalid: %w", op, endpoint, ErrInvalidParameter)
	}
	q := u.Query()
	for k, vals := range v {
		for _, val := range vals {
			q.Add(k, val)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
