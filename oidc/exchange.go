// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/rpstub/cap/oidc/clientassertion"
	"golang.org/x/oauth2"
)

// Exchange requests tokens from the provider's token endpoint with the
// authorization code. The redirectURL must be the one the code was issued
// for. A non-empty verifier is sent as the PKCE code_verifier.
//
// The client authenticates with client_secret_post when the profile has a
// ClientSecret, otherwise with a private_key_jwt client assertion signed by
// the profile's signing key.
//
// The returned Token always has an id_token and an access_token. The
// id_token is not verified here, see VerifyIDToken.
func (p *Provider) Exchange(ctx context.Context, code, redirectURL, verifier string) (*Tk, error) {
	const op = "Provider.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	client, err := p.config.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	oidcCtx := HTTPClientContext(ctx, client)

	endpoint := p.provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	oauth2Config := oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: redirectURL,
		Endpoint:    endpoint,
	}
	var authCodeOpts []oauth2.AuthCodeOption
	if verifier != "" {
		authCodeOpts = append(authCodeOpts, oauth2.VerifierOption(verifier))
	}
	switch {
	case p.config.ClientSecret != "":
		p.logger.Debug("authenticating token request with client_secret_post")
		oauth2Config.ClientSecret = string(p.config.ClientSecret)
	default:
		p.logger.Debug("authenticating token request with private_key_jwt")
		assertion, err := p.clientAssertion(endpoint.TokenURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		authCodeOpts = append(authCodeOpts,
			oauth2.SetAuthURLParam("client_assertion_type", clientassertion.JWTTypeParam),
			oauth2.SetAuthURLParam("client_assertion", assertion),
		)
	}

	p.logger.Info("making token request")
	oauth2Token, err := oauth2Config.Exchange(oidcCtx, code, authCodeOpts...)
	if err != nil {
		p.logger.Error("token request was unsuccessful", "error", err)
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			pe := &ProviderError{
				Code:        re.ErrorCode,
				Description: re.ErrorDescription,
				Body:        string(re.Body),
			}
			if re.Response != nil {
				pe.StatusCode = re.Response.StatusCode
			}
			return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, pe)
		}
		if isMissingAccessToken(err) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrMissingAccessToken, err)
		}
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w: %w", op, ErrTokenRequestFailed, err)
	}
	p.logger.Info("token request was successful")

	if oauth2Token.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is missing from auth code exchange: %w", op, ErrMissingAccessToken)
	}
	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	t, err := NewToken(IDToken(idToken), oauth2Token, WithNow(p.nowFunc))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create new id_token: %w", op, err)
	}
	if d := t.ExpiresIn(); d > 0 {
		p.logger.Info("access token expires in", "lifetime", d)
	} else {
		p.logger.Warn("no expiry on access token")
	}
	return t, nil
}

// clientAssertion signs a private_key_jwt assertion for the token endpoint.
func (p *Provider) clientAssertion(tokenURL string) (string, error) {
	const op = "Provider.clientAssertion"
	var opts []clientassertion.Option
	if p.signingKey.KeyID() != "" {
		opts = append(opts, clientassertion.WithKeyID(p.signingKey.KeyID()))
	}
	aud := []string{tokenURL}
	var (
		j   *clientassertion.JWT
		err error
	)
	switch k := p.signingKey.PrivateKey().(type) {
	case *rsa.PrivateKey:
		j, err = clientassertion.NewJWTWithRSAKey(p.config.ClientID, aud, clientassertion.RSAlgorithm(p.signingKey.Algorithm()), k, opts...)
	case *ecdsa.PrivateKey:
		j, err = clientassertion.NewJWTWithECKey(p.config.ClientID, aud, clientassertion.ESAlgorithm(p.signingKey.Algorithm()), k, opts...)
	default:
		return "", fmt.Errorf("%s: %T can't sign a client assertion: %w", op, k, ErrInvalidSigningKey)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrSigningFailed, err)
	}
	assertion, err := j.Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrSigningFailed, err)
	}
	return assertion, nil
}

// oauth2MissingAccessToken is how x/oauth2 words its rejection of a token
// reply without an access_token. It's a plain error with no type to match, so
// the text is all there is. TestProvider_Exchange fails if the library in
// go.mod words it differently.
const oauth2MissingAccessToken = "server response missing access_token"

// isMissingAccessToken reports whether err is x/oauth2 rejecting a token reply
// that has no access_token. Such a reply never reaches the Token checks below
// Exchange.
func isMissingAccessToken(err error) bool {
	return err != nil && strings.Contains(err.Error(), oauth2MissingAccessToken)
}
