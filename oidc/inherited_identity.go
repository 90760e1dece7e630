// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpstub/cap/sdk/id"
)

// InheritedIdentity describes an identity record carried over from another
// service, which is presented to the provider inside a signed assertion.
type InheritedIdentity struct {
	// Subject of the assertion.
	Subject string

	// Audience is the identity proving endpoint the assertion is for.
	Audience string

	// Issuer of the assertion.
	Issuer string

	// VOT is the vector of trust the identity was proven at.
	VOT string

	// VTM is the trust mark URL for the vector.
	VTM string

	// Credential is the verifiable credential, placed in the "vc" claim.
	Credential map[string]interface{}

	// NotBefore defaults to now.
	NotBefore time.Time
}

type inheritedIdentityClaims struct {
	VOT        string                 `json:"vot"`
	VTM        string                 `json:"vtm"`
	Credential map[string]interface{} `json:"vc"`
	jwt.RegisteredClaims
}

// NewInheritedIdentityJWT signs the inherited identity as an ES256 JWT with a
// random "urn:uuid:" jti. The key must be a P-256 private key, encoded as
// accepted by ParsePrivateKey.
func NewInheritedIdentityJWT(encodedKey string, ii InheritedIdentity) (string, error) {
	const op = "NewInheritedIdentityJWT"
	signer, err := ParsePrivateKey(encodedKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	key, ok := signer.(*ecdsa.PrivateKey)
	if !ok {
		return "", fmt.Errorf("%s: %T is not an EC key: %w", op, signer, ErrInvalidSigningKey)
	}
	if ii.Credential == nil {
		return "", fmt.Errorf("%s: credential is nil: %w", op, ErrNilParameter)
	}
	jti, err := id.NewUUID()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIDGeneratorFailed, err)
	}
	nbf := ii.NotBefore
	if nbf.IsZero() {
		nbf = time.Now()
	}
	claims := inheritedIdentityClaims{
		VOT:        ii.VOT,
		VTM:        ii.VTM,
		Credential: ii.Credential,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ii.Subject,
			Issuer:    ii.Issuer,
			NotBefore: jwt.NewNumericDate(nbf),
			ID:        "urn:uuid:" + jti,
		},
	}
	if ii.Audience != "" {
		claims.Audience = jwt.ClaimStrings{ii.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrSigningFailed, err)
	}
	return signed, nil
}
