// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()
	rsaKey, rsaB64 := TestGenerateRSAKey(t)
	_, ecPEM := TestGenerateKeys(t)

	// line wrapped base64, the way keys are often pasted into config
	var wrapped strings.Builder
	for i := 0; i < len(rsaB64); i += 64 {
		end := i + 64
		if end > len(rsaB64) {
			end = len(rsaB64)
		}
		wrapped.WriteString(rsaB64[i:end] + "\n")
	}

	tests := []struct {
		name      string
		encoded   string
		wantType  crypto.Signer
		wantIsErr error
	}{
		{name: "pkcs8-base64", encoded: rsaB64, wantType: rsaKey},
		{name: "pkcs8-base64-wrapped", encoded: wrapped.String(), wantType: rsaKey},
		{name: "sec1-pem", encoded: ecPEM, wantType: &ecdsa.PrivateKey{}},
		{name: "empty", encoded: "  ", wantIsErr: ErrInvalidSigningKey},
		{name: "not-base64", encoded: "%%%", wantIsErr: ErrInvalidSigningKey},
		{name: "not-a-key", encoded: base64.StdEncoding.EncodeToString([]byte("hello")), wantIsErr: ErrInvalidSigningKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := ParsePrivateKey(tt.encoded)
			if tt.wantIsErr != nil {
				require.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.IsType(tt.wantType, got)
		})
	}
}

func TestNewSigningKey(t *testing.T) {
	t.Parallel()
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, rsaB64 := TestGenerateRSAKey(t)
	_, ecPEM := TestGenerateKeys(t)

	tests := []struct {
		name    string
		encoded string
		wantAlg Alg
	}{
		{name: "rsa", encoded: rsaB64, wantAlg: RS512},
		{name: "p256", encoded: ecPEM, wantAlg: ES256},
		{name: "p384", encoded: TestEncodePrivateKey(t, p384), wantAlg: ES384},
		{name: "ed25519", encoded: TestEncodePrivateKey(t, edKey), wantAlg: EdDSA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			k, err := NewSigningKey(tt.encoded, "kid-1")
			require.NoError(err)
			assert.Equal(tt.wantAlg, k.Algorithm())
			assert.Equal("kid-1", k.KeyID())
			assert.NotNil(k.PublicKey())

			raw, err := k.Sign(map[string]interface{}{"iss": "client", "n": 1})
			require.NoError(err)
			tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.SignatureAlgorithm(tt.wantAlg)})
			require.NoError(err)
			require.Len(tok.Headers, 1)
			assert.Equal("kid-1", tok.Headers[0].KeyID)
			assert.Equal("JWT", tok.Headers[0].ExtraHeaders[jose.HeaderType])
			var claims map[string]interface{}
			require.NoError(tok.Claims(k.PublicKey(), &claims))
			assert.Equal("client", claims["iss"])
		})
	}

	t.Run("nil-claims", func(t *testing.T) {
		k, err := NewSigningKey(ecPEM, "")
		require.NoError(t, err)
		_, err = k.Sign(nil)
		require.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestSigningKey_PublicJWKS(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	rsaKey, rsaB64 := TestGenerateRSAKey(t)
	k, err := NewSigningKey(rsaB64, "kid-2")
	require.NoError(t, err)
	ks := k.PublicJWKS()
	require.Len(t, ks.Keys, 1)
	jwk := ks.Keys[0]
	assert.Equal("kid-2", jwk.KeyID)
	assert.Equal("sig", jwk.Use)
	assert.Equal(string(RS512), jwk.Algorithm)
	assert.True(jwk.IsPublic())
	pub, ok := jwk.Key.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(rsaKey.PublicKey.N, pub.N)
}
