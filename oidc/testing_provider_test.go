// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviderClient(t *testing.T, tp *TestProvider) *http.Client {
	t.Helper()
	c := &Config{ProviderCA: tp.CACert()}
	client, err := c.HTTPClient()
	require.NoError(t, err)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return client
}

func Test_StartTestProvider(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	client := testProviderClient(t, tp)

	resp, err := client.Get(tp.Addr() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	var disco map[string]interface{}
	require.NoError(json.NewDecoder(resp.Body).Decode(&disco))
	assert.Equal(tp.Addr(), disco["issuer"])
	assert.Equal(tp.Addr()+"/logout", disco["end_session_endpoint"])

	resp, err = client.Get(tp.Addr() + "/.well-known/jwks.json")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	var ks jose.JSONWebKeySet
	require.NoError(json.NewDecoder(resp.Body).Decode(&ks))
	require.Len(ks.Keys, 1)
	assert.Equal(TestProviderKeyID, ks.Keys[0].KeyID)

	pub, priv := tp.SigningKeys()
	assert.NotEmpty(pub)
	assert.NotEmpty(priv)
}

func TestTestProvider_DisableJWKS(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	tp.DisableJWKS()
	resp, err := testProviderClient(t, tp).Get(tp.Addr() + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTestProvider_token(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	tp.SetClientCreds("client", "secret")
	tp.SetExpectedAuthCode("code")
	client := testProviderClient(t, tp)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantCode   string
	}{
		{
			name: "valid",
			form: url.Values{
				"grant_type": {"authorization_code"}, "code": {"code"},
				"redirect_uri": {testRedirect}, "client_id": {"client"}, "client_secret": {"secret"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "no-client-auth",
			form: url.Values{
				"grant_type": {"authorization_code"}, "code": {"code"}, "redirect_uri": {testRedirect},
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_client",
		},
		{
			name: "bad-secret",
			form: url.Values{
				"grant_type": {"authorization_code"}, "code": {"code"},
				"redirect_uri": {testRedirect}, "client_id": {"client"}, "client_secret": {"nope"},
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_client",
		},
		{
			name: "bad-redirect",
			form: url.Values{
				"grant_type": {"authorization_code"}, "code": {"code"},
				"redirect_uri": {"https://evil.example.com"}, "client_id": {"client"}, "client_secret": {"secret"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name: "bad-assertion",
			form: url.Values{
				"grant_type": {"authorization_code"}, "code": {"code"}, "redirect_uri": {testRedirect},
				"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
				"client_assertion":      {"not.a.jwt"},
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_client",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			resp, err := client.PostForm(tp.Addr()+"/token", tt.form)
			require.NoError(err)
			defer resp.Body.Close()
			assert.Equal(tt.wantStatus, resp.StatusCode)
			var body map[string]interface{}
			require.NoError(json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantCode != "" {
				assert.Equal(tt.wantCode, body["error"])
				return
			}
			assert.NotEmpty(body["id_token"])
			assert.Equal("Bearer", body["token_type"])
			assert.Equal(ClientSecretPost, tp.LastTokenAuthMethod())
		})
	}
}

func TestTestProvider_authorize(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	client := testProviderClient(t, tp)

	t.Run("denied-without-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		resp, err := client.Get(tp.Addr() + "/authorize?" + url.Values{
			"response_type": {"code"}, "scope": {"openid"}, "state": {"st"}, "redirect_uri": {testRedirect},
		}.Encode())
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)
		assert.Equal("access_denied", loc.Query().Get("error"))
		assert.Equal("st", loc.Query().Get("state"))
	})

	t.Run("bad-request-object", func(t *testing.T) {
		resp, err := client.Get(tp.Addr() + "/authorize?" + url.Values{
			"response_type": {"code"}, "scope": {"openid"}, "request": {"not.a.jwt"},
		}.Encode())
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.True(t, strings.Contains(string(b), "invalid_request_object"))
	})
}

func TestTestProvider_writeTokenErrorResponse(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := &TestProvider{}
	rec := httptest.NewRecorder()
	tp.writeTokenErrorResponse(rec, http.StatusBadRequest, "invalid_grant", "expired")
	assert.Equal(http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(map[string]string{"error": "invalid_grant", "error_description": "expired"}, body)
}

func Test_audienceContains(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.True(audienceContains("a", "a"))
	assert.True(audienceContains([]interface{}{"b", "a"}, "a"))
	assert.False(audienceContains([]interface{}{"b"}, "a"))
	assert.False(audienceContains(nil, "a"))
}
