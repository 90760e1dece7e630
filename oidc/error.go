// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrInvalidSigningKey          = errors.New("invalid signing key")
	ErrUnsupportedAlg             = errors.New("unsupported signing algorithm")
	ErrSigningFailed              = errors.New("signing failed")
	ErrIDGeneratorFailed          = errors.New("id generation failed")
	ErrDiscoveryFailed            = errors.New("provider discovery failed")
	ErrTokenRequestFailed         = errors.New("token request failed")
	ErrMissingIDToken             = errors.New("id_token is missing")
	ErrMissingAccessToken         = errors.New("access_token is missing")
	ErrIDTokenVerificationFailed  = errors.New("id_token verification failed")
	ErrInvalidNonce               = errors.New("invalid nonce")
	ErrUserInfoFailed             = errors.New("user info failed")
	ErrMissingChallengeMethod     = errors.New("code verifier is missing a challenge method")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
	ErrInvalidPrompt              = errors.New("invalid prompt")
	ErrInvalidClaimsRequest       = errors.New("invalid claims request")
	ErrUnsupportedClientType      = errors.New("unsupported client type")
)

// ProviderError is returned when the provider answers a token request with a
// non-success response.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

// Error satisfies the error interface.
func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider responded with status %d: %s", e.StatusCode, e.Body)
	}
	if e.Description == "" {
		return fmt.Sprintf("provider responded with status %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("provider responded with status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Unwrap allows errors.Is(err, ErrTokenRequestFailed).
func (e *ProviderError) Unwrap() error {
	return ErrTokenRequestFailed
}
