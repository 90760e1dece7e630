// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rpstub/cap/identity"
	"github.com/rpstub/cap/oidc"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "test-client-id"
	testClientSecret = "test-client-secret"
	testRedirect     = "https://example.com/oidc/authorization-code/callback"
	testCode         = "valid-code"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(_ string, r *Result, w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"sub":           r.IDTokenClaims["sub"],
		"core_identity": r.CoreIdentity,
		"email":         r.UserInfo.Email,
	})
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(_ string, r *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(r)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(&AuthenErrorResponse{Error: "unknown-callback-error"})
}

// testNewProvider creates a Provider for the TestProvider using
// client_secret_post.
func testNewProvider(t *testing.T, tp *oidc.TestProvider, opt ...oidc.Option) *oidc.Provider {
	t.Helper()
	require := require.New(t)
	tp.SetClientCreds(testClientID, testClientSecret)
	tp.SetExpectedAuthCode(testCode)
	_, key := oidc.TestGenerateKeys(t)
	opts := append([]oidc.Option{
		oidc.WithClientSecret(testClientSecret),
		oidc.WithProviderCA(tp.CACert()),
	}, opt...)
	c, err := oidc.NewConfig(tp.Addr(), testClientID, key, testRedirect, opts...)
	require.NoError(err)
	p, err := oidc.NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}

// testAuthorize sends the request to the TestProvider and returns the
// callback query it redirects back with.
func testAuthorize(t *testing.T, p *oidc.Provider, tp *oidc.TestProvider, r oidc.Request) url.Values {
	t.Helper()
	require := require.New(t)
	authURL, err := p.AuthURL(context.Background(), r, oidc.RequestModeQuery)
	require.NoError(err)

	c := &oidc.Config{ProviderCA: tp.CACert()}
	client, err := c.HTTPClient()
	require.NoError(err)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := client.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)
	return loc.Query()
}

// testCallback runs the handler for the callback query.
func testCallback(t *testing.T, h http.HandlerFunc, q url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/oidc/authorization-code/callback?"+q.Encode(), nil))
	return rec
}

// testValidator is an identity.Validator with a canned answer.
type testValidator struct {
	result identity.Result
	err    error
	calls  int
}

func (v *testValidator) IsValid(context.Context, string) (identity.Result, error) {
	v.calls++
	return v.result, v.err
}

// testNilRequestReader finds nothing.
type testNilRequestReader struct{}

func (*testNilRequestReader) Read(context.Context, string) (oidc.Request, error) { return nil, nil }
