// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackChannelLogoutEvent is the event a back-channel logout token must carry.
const BackChannelLogoutEvent = "http://schemas.openid.net/event/backchannel-logout"

// LogoutURL returns the provider's logout URL for the end user, built from the
// profile's issuer: "<issuer>/logout", or "<issuer>logout" when the issuer
// already ends in a slash. An empty postLogoutRedirectURL falls back to the
// profile's PostLogoutRedirectURL. Empty parameters are omitted.
func (p *Provider) LogoutURL(idTokenHint IDToken, state, postLogoutRedirectURL string) (string, error) {
	const op = "Provider.LogoutURL"
	logoutEndpoint := p.config.Issuer
	if strings.HasSuffix(logoutEndpoint, "/") {
		logoutEndpoint += "logout"
	} else {
		logoutEndpoint += "/logout"
	}
	if postLogoutRedirectURL == "" {
		postLogoutRedirectURL = p.config.PostLogoutRedirectURL
	}
	v := url.Values{}
	if idTokenHint != "" {
		v.Set("id_token_hint", string(idTokenHint))
	}
	if state != "" {
		v.Set("state", state)
	}
	if postLogoutRedirectURL != "" {
		v.Set("post_logout_redirect_uri", postLogoutRedirectURL)
	}
	u, err := withQuery(logoutEndpoint, v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// LogoutToken is a verified back-channel logout token.
type LogoutToken struct {
	Issuer    string
	Subject   string
	SessionID string
	Audience  []string
	IssuedAt  time.Time
	JWTID     string
	Events    map[string]interface{}
}

type logoutTokenClaims struct {
	IssuedAt  *int64                 `json:"iat"`
	SessionID string                 `json:"sid"`
	JWTID     string                 `json:"jti"`
	Nonce     *string                `json:"nonce"`
	Events    map[string]interface{} `json:"events"`
}

// ValidateLogoutToken verifies a back-channel logout token. The signature is
// checked against a freshly fetched provider key set using the profile's
// alg, along with the issuer and audience. The token must have an iat, the
// back-channel logout event, a sub or sid, and no nonce. Expiry isn't
// checked.
//
// It never returns an error: a token which fails validation is logged and
// (nil, false) is returned.
func (p *Provider) ValidateLogoutToken(ctx context.Context, token string) (*LogoutToken, bool) {
	if token == "" {
		p.logger.Warn("logout token is empty")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultValidationTimeout)
	defer cancel()
	verifier, err := p.verifier(ctx, true)
	if err != nil {
		p.logger.Error("unable to create logout token verifier", "error", err)
		return nil, false
	}
	idToken, err := verifier.Verify(ctx, token)
	if err != nil {
		p.logger.Error("unable to validate logout token", "error", err)
		return nil, false
	}
	var claims logoutTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		p.logger.Error("unable to parse logout token claims", "error", err)
		return nil, false
	}
	switch {
	case claims.IssuedAt == nil:
		p.logger.Warn("logout token is missing iat")
		return nil, false
	case claims.Events == nil:
		p.logger.Warn("logout token is missing events")
		return nil, false
	case claims.Nonce != nil:
		p.logger.Warn("logout token must not contain a nonce")
		return nil, false
	case idToken.Subject == "" && claims.SessionID == "":
		p.logger.Warn("logout token must contain a sub or sid")
		return nil, false
	}
	if _, ok := claims.Events[BackChannelLogoutEvent]; !ok {
		p.logger.Warn("logout token is missing the back-channel logout event")
		return nil, false
	}
	p.logger.Info("logout token is valid", "sub", idToken.Subject, "sid", claims.SessionID)
	return &LogoutToken{
		Issuer:    idToken.Issuer,
		Subject:   idToken.Subject,
		SessionID: claims.SessionID,
		Audience:  idToken.Audience,
		IssuedAt:  time.Unix(*claims.IssuedAt, 0),
		JWTID:     claims.JWTID,
		Events:    claims.Events,
	}, true
}
