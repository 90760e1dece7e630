// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/rpstub/cap/sdk/id"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// PKCE code challenge methods as defined by RFC 7636.
	//
	// See: https://tools.ietf.org/html/rfc7636#page-9
	S256  ChallengeMethod = "S256"  // SHA-256
	Plain ChallengeMethod = "plain" // the verifier itself
)

// verifierLen is the length of a generated verifier, within the 43 to 128
// characters RFC 7636 allows.
const verifierLen = 43

// CodeVerifier represents an OAuth PKCE code verifier.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.1
type CodeVerifier interface {
	// Verifier returns the code verifier (see:
	// https://tools.ietf.org/html/rfc7636#section-4.1)
	Verifier() string

	// Challenge returns the code verifier's code challenge (see:
	// https://tools.ietf.org/html/rfc7636#section-4.2)
	Challenge() string

	// Method returns the code verifier's challenge method (see
	// https://tools.ietf.org/html/rfc7636#section-4.2)
	Method() ChallengeMethod

	// Copy returns a copy of the verifier
	Copy() CodeVerifier
}

// PKCEVerifier is a code verifier together with its derived challenge.
type PKCEVerifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

var _ CodeVerifier = (*PKCEVerifier)(nil)

// NewCodeVerifier creates a new random CodeVerifier using the S256 method.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.1
func NewCodeVerifier() (*PKCEVerifier, error) {
	const op = "NewCodeVerifier"
	data, err := id.New("", 32)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate verifier: %w", op, err)
	}
	return NewCodeVerifierFromValue(data, S256)
}

// NewCodeVerifierFromValue wraps a caller supplied verifier. A verifier
// without a challenge method is rejected with ErrMissingChallengeMethod.
func NewCodeVerifierFromValue(verifier string, method ChallengeMethod) (*PKCEVerifier, error) {
	const op = "NewCodeVerifierFromValue"
	if verifier == "" {
		return nil, fmt.Errorf("%s: verifier is empty: %w", op, ErrInvalidParameter)
	}
	if method == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingChallengeMethod)
	}
	v := &PKCEVerifier{
		verifier: verifier,
		method:   method,
	}
	challenge, err := CreateCodeChallenge(method, v)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	v.challenge = challenge
	return v, nil
}

func (v *PKCEVerifier) Verifier() string        { return v.verifier }  // Verifier implements the CodeVerifier.Verifier() interface function.
func (v *PKCEVerifier) Challenge() string       { return v.challenge } // Challenge implements the CodeVerifier.Challenge() interface function.
func (v *PKCEVerifier) Method() ChallengeMethod { return v.method }    // Method implements the CodeVerifier.Method() interface function.

// Copy returns a copy of the verifier.
func (v *PKCEVerifier) Copy() CodeVerifier {
	return &PKCEVerifier{
		verifier:  v.verifier,
		challenge: v.challenge,
		method:    v.method,
	}
}

// CreateCodeChallenge creates a code challenge from the verifier. Supported
// ChallengeMethods: S256 and plain.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.2
func CreateCodeChallenge(method ChallengeMethod, v CodeVerifier) (string, error) {
	const op = "CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: verifier is nil: %w", op, ErrNilParameter)
	}
	switch method {
	case S256:
		h := sha256.Sum256([]byte(v.Verifier()))
		return base64.RawURLEncoding.EncodeToString(h[:]), nil
	case Plain:
		return v.Verifier(), nil
	case "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingChallengeMethod)
	default:
		return "", fmt.Errorf("%s: %s is not a supported code challenge method: %w", op, method, ErrUnsupportedChallengeMethod)
	}
}
