// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWKSHandler(t *testing.T) {
	t.Parallel()
	_, rsaB64 := TestGenerateRSAKey(t)
	key, err := NewSigningKey(rsaB64, "rp-kid")
	require.NoError(t, err)
	h, err := JWKSHandler(key)
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
		require.Equal(http.StatusOK, rec.Code)
		assert.Equal("application/json", rec.Header().Get("Content-Type"))
		assert.Equal("max-age=86400", rec.Header().Get("Cache-Control"))

		var ks jose.JSONWebKeySet
		require.NoError(json.Unmarshal(rec.Body.Bytes(), &ks))
		require.Len(ks.Keys, 1)
		assert.Equal("rp-kid", ks.Keys[0].KeyID)
		assert.Equal("sig", ks.Keys[0].Use)
		assert.True(ks.Keys[0].IsPublic())
	})

	t.Run("post", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/.well-known/jwks.json", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("nil-key", func(t *testing.T) {
		_, err := JWKSHandler(nil)
		require.ErrorIs(t, err, ErrNilParameter)
	})
}
