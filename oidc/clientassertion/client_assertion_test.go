// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJWTBare tests what errors we expect if &JWT{} is instantiated directly,
// rather than using a constructor.
func TestJWTBare(t *testing.T) {
	t.Parallel()
	j := &JWT{}

	tokenString, err := j.Serialize()
	require.ErrorIs(t, err, ErrMissingFuncIDGenerator)
	require.ErrorIs(t, err, ErrMissingFuncNow)
	assert.Equal(t, "", tokenString)
}

func TestNewJWTWithRSAKey(t *testing.T) {
	t.Parallel()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name    string
		cid     string
		aud     []string
		alg     RSAlgorithm
		key     *rsa.PrivateKey
		opts    []Option
		wantErr []error
	}{
		{
			name: "valid",
			cid:  "client-id", aud: []string{"aud"},
			alg: RS512, key: key,
			opts: []Option{WithKeyID("kid")},
		},
		{
			name: "missing-everything",
			alg:  RS256, key: key,
			wantErr: []error{ErrMissingClientID, ErrMissingAudience},
		},
		{
			name: "nil-key",
			cid:  "client-id", aud: []string{"aud"},
			alg:     RS256,
			wantErr: []error{ErrNilPrivateKey, ErrMissingKey},
		},
		{
			name: "bad-alg",
			cid:  "client-id", aud: []string{"aud"},
			alg: RSAlgorithm("ruh-roh"), key: key,
			wantErr: []error{ErrUnsupportedAlgorithm},
		},
		{
			name: "kid-header",
			cid:  "client-id", aud: []string{"aud"},
			alg: RS256, key: key,
			opts:    []Option{WithHeaders(map[string]string{"kid": "nope"})},
			wantErr: []error{ErrKidHeader},
		},
		{
			name: "empty-kid",
			cid:  "client-id", aud: []string{"aud"},
			alg: RS256, key: key,
			opts:    []Option{WithKeyID("")},
			wantErr: []error{ErrMissingKeyID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJWTWithRSAKey(tt.cid, tt.aud, tt.alg, tt.key, tt.opts...)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				assert.Nil(t, j)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cid, j.clientID)
			assert.Equal(t, tt.aud, j.audience)
			assert.Equal(t, jose.SignatureAlgorithm(tt.alg), j.alg)
		})
	}
}

func TestNewJWTWithECKey(t *testing.T) {
	t.Parallel()
	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		j, err := NewJWTWithECKey("cid", []string{"aud"}, ES256, p256)
		require.NoError(t, err)
		assert.Equal(t, jose.ES256, j.alg)
	})
	t.Run("curve-mismatch", func(t *testing.T) {
		_, err := NewJWTWithECKey("cid", []string{"aud"}, ES384, p256)
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})
	t.Run("nil-key", func(t *testing.T) {
		_, err := NewJWTWithECKey("cid", []string{"aud"}, ES256, nil)
		require.ErrorIs(t, err, ErrNilPrivateKey)
	})
}

func TestJWT_Serialize(t *testing.T) {
	t.Parallel()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name     string
		newJWT   func() (*JWT, error)
		claimKey any
		alg      jose.SignatureAlgorithm
	}{
		{
			name: "rsa",
			newJWT: func() (*JWT, error) {
				return NewJWTWithRSAKey("test-client-id", []string{"test-aud"}, RS512, rsaKey,
					WithKeyID("test-key-id"), WithHeaders(map[string]string{"xtra": "headies"}))
			},
			claimKey: rsaKey.Public(),
			alg:      jose.RS512,
		},
		{
			name: "ec",
			newJWT: func() (*JWT, error) {
				return NewJWTWithECKey("test-client-id", []string{"test-aud"}, ES256, ecKey,
					WithKeyID("test-key-id"), WithHeaders(map[string]string{"xtra": "headies"}))
			},
			claimKey: ecKey.Public(),
			alg:      jose.ES256,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := tt.newJWT()
			require.NoError(t, err)

			now := time.Now()
			j.now = func() time.Time { return now }
			j.genID = func() (string, error) { return "test-claim-id", nil }

			tokenString, err := j.Serialize()
			require.NoError(t, err)

			token, err := jwt.ParseSigned(tokenString, []jose.SignatureAlgorithm{tt.alg})
			require.NoError(t, err)

			require.Len(t, token.Headers, 1)
			h := token.Headers[0]
			assert.Equal(t, string(tt.alg), h.Algorithm)
			assert.Equal(t, "test-key-id", h.KeyID)
			assert.Equal(t, "JWT", h.ExtraHeaders["typ"])
			assert.Equal(t, "headies", h.ExtraHeaders["xtra"])

			var actualClaims jwt.Claims
			var private struct {
				ClientID string `json:"client_id"`
			}
			require.NoError(t, token.Claims(tt.claimKey, &actualClaims, &private))
			require.NoError(t, actualClaims.Validate(jwt.Expected{
				Issuer:      "test-client-id",
				Subject:     "test-client-id",
				AnyAudience: []string{"test-aud"},
				ID:          "test-claim-id",
				Time:        now,
			}))
			assert.Equal(t, "test-client-id", private.ClientID)
			assert.Equal(t, now.Add(DefaultLifetime).Unix(), actualClaims.Expiry.Time().Unix())
		})
	}

	t.Run("error generating token id", func(t *testing.T) {
		genIDErr := errors.New("failed to generate test id")
		j, err := NewJWTWithECKey("a", []string{"a"}, ES256, ecKey)
		require.NoError(t, err)
		j.genID = func() (string, error) { return "", genIDErr }
		tokenString, err := j.Serialize()
		require.ErrorIs(t, err, genIDErr)
		require.Equal(t, "", tokenString)
	})
}
