// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInheritedIdentityJWT(t *testing.T) {
	t.Parallel()
	_, ecPEM := TestGenerateKeys(t)
	_, rsaB64 := TestGenerateRSAKey(t)
	nbf := time.Now().Add(-time.Minute).Truncate(time.Second)
	ii := InheritedIdentity{
		Subject:  "urn:fdc:gov.uk:2022:subject",
		Audience: "https://identity.example.com",
		Issuer:   "https://rp.example.com",
		VOT:      "P2",
		VTM:      "https://oidc.example.com/trustmark",
		Credential: map[string]interface{}{
			"type": []string{"VerifiableCredential"},
		},
		NotBefore: nbf,
	}

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		signed, err := NewInheritedIdentityJWT(ecPEM, ii)
		require.NoError(err)

		signer, err := ParsePrivateKey(ecPEM)
		require.NoError(err)
		var claims inheritedIdentityClaims
		tok, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (interface{}, error) {
			return signer.Public(), nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		require.NoError(err)
		require.True(tok.Valid)
		assert.Equal(ii.Subject, claims.Subject)
		assert.Equal(jwt.ClaimStrings{ii.Audience}, claims.Audience)
		assert.Equal(ii.Issuer, claims.Issuer)
		assert.Equal("P2", claims.VOT)
		assert.Equal(ii.VTM, claims.VTM)
		assert.Equal(nbf.Unix(), claims.NotBefore.Unix())
		assert.True(strings.HasPrefix(claims.ID, "urn:uuid:"))
		assert.Contains(claims.Credential, "type")
	})

	t.Run("attached-to-claims-request", func(t *testing.T) {
		signed, err := NewInheritedIdentityJWT(ecPEM, ii)
		require.NoError(t, err)
		c := NewClaimsRequest().AddInheritedIdentity(signed)
		assert.Contains(t, c.String(), signed)
		assert.Contains(t, c.String(), InheritedIdentityClaim)
	})

	t.Run("rsa-key", func(t *testing.T) {
		_, err := NewInheritedIdentityJWT(rsaB64, ii)
		require.ErrorIs(t, err, ErrInvalidSigningKey)
	})

	t.Run("no-credential", func(t *testing.T) {
		noVC := ii
		noVC.Credential = nil
		_, err := NewInheritedIdentityJWT(ecPEM, noVC)
		require.ErrorIs(t, err, ErrNilParameter)
	})
}
