// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/rpstub/cap/oidc/clientassertion"
	"github.com/rpstub/cap/oidc/internal/strutils"
	"github.com/stretchr/testify/require"
)

// TestProviderKeyID is the kid the TestProvider signs its tokens with.
const TestProviderKeyID = "test-provider-key"

// Token endpoint client authentication methods recorded by the TestProvider.
const (
	ClientSecretPost = "client_secret_post"
	PrivateKeyJWT    = "private_key_jwt"
)

// TestProvider is a local TLS server which plays the part of the OIDC
// provider: discovery, /authorize, /token, /userinfo, the provider JWKS and
// /logout. It records what the relying party sends so tests can assert on it.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	privateKey *ecdsa.PrivateKey
	privPEM    string
	pubPEM     string

	mu                   sync.Mutex
	clientID             string
	clientSecret         string
	clientPublicKey      crypto.PublicKey
	allowedRedirectURIs  []string
	expectedAuthCode     string
	expectedCodeVerifier string
	expectedAccessToken  string
	replySubject         string
	replyNonce           string
	replyExpiresIn       int
	replyUserinfo        map[string]interface{}
	customClaims         map[string]interface{}
	omitIDToken          bool
	omitAccessToken      bool
	disableUserInfo      bool
	disableJWKS          bool

	lastAuthRequest     url.Values
	lastRequestObject   map[string]interface{}
	lastTokenAuth       string
	lastTokenRequest    url.Values
	lastLogoutRequest   url.Values
	lastClientAssertion map[string]interface{}

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t: t,
		allowedRedirectURIs: []string{
			"https://example.com/oidc/authorization-code/callback",
		},
		expectedAccessToken: "test-access-token",
		replySubject:        "urn:fdc:gov.uk:2022:test-subject",
		replyExpiresIn:      180,
		replyUserinfo: map[string]interface{}{
			"email":          "alice@example.com",
			"email_verified": true,
			"phone_number":   "+447700900000",
		},
	}
	p.pubPEM, p.privPEM = TestGenerateKeys(t)
	signer, err := ParsePrivateKey(p.privPEM)
	require.NoError(err)
	p.privateKey = signer.(*ecdsa.PrivateKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// SetClientCreds configures the client id and the optional client secret the
// token endpoint accepts.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetClientPublicKey configures the key used to verify client assertions and
// signed request objects.
func (p *TestProvider) SetClientPublicKey(k crypto.PublicKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientPublicKey = k
}

// SetExpectedAuthCode configures the auth code returned from /authorize and
// accepted by /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedCodeVerifier requires /token to receive the PKCE verifier.
func (p *TestProvider) SetExpectedCodeVerifier(v string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedCodeVerifier = v
}

// SetAllowedRedirectURIs configures the redirect URIs /token accepts.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetReplyNonce sets the nonce claim of issued id_tokens.
func (p *TestProvider) SetReplyNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyNonce = nonce
}

// SetReplyExpiresIn sets the access token lifetime. Zero omits expires_in.
func (p *TestProvider) SetReplyExpiresIn(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiresIn = seconds
}

// SetUserInfoReply sets the claims returned by /userinfo, sub is always
// added.
func (p *TestProvider) SetUserInfoReply(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = claims
}

// SetCustomClaims lets you set additional claims in issued id_tokens.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// OmitIDTokens forces /token to reply without an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitAccessTokens forces /token to reply without an access_token.
func (p *TestProvider) OmitAccessTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitAccessToken = true
}

// DisableUserInfo makes /userinfo return 404.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// DisableJWKS makes the provider key set return 404.
func (p *TestProvider) DisableJWKS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableJWKS = true
}

// Addr returns the base URL of the provider, which is also its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the provider's HTTPS
// server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the provider's pem-encoded token signing keys.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.pubPEM, p.privPEM
}

// LastAuthRequest returns the query of the last /authorize request.
func (p *TestProvider) LastAuthRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthRequest
}

// LastRequestObject returns the verified claims of the last request object
// sent to /authorize.
func (p *TestProvider) LastRequestObject() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRequestObject
}

// LastTokenAuthMethod returns how the client authenticated at /token, either
// ClientSecretPost or PrivateKeyJWT.
func (p *TestProvider) LastTokenAuthMethod() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTokenAuth
}

// LastTokenRequest returns the form of the last /token request.
func (p *TestProvider) LastTokenRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTokenRequest
}

// LastClientAssertion returns the verified claims of the last client
// assertion.
func (p *TestProvider) LastClientAssertion() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastClientAssertion
}

// LastLogoutRequest returns the query of the last /logout request.
func (p *TestProvider) LastLogoutRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastLogoutRequest
}

// SignToken signs claims with the provider's key, kid and ES256, the way it
// signs id_tokens. Use it for logout tokens.
func (p *TestProvider) SignToken(claims map[string]interface{}) string {
	p.t.Helper()
	raw, err := p.sign(claims)
	require.NoError(p.t, err)
	return raw
}

func (p *TestProvider) sign(claims map[string]interface{}) (string, error) {
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: p.privateKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader(jose.HeaderKey("kid"), TestProviderKeyID),
	)
	if err != nil {
		return "", err
	}
	return jwt.Signed(sig).Claims(claims).Serialize()
}

func (p *TestProvider) jwks() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       p.privateKey.Public(),
				KeyID:     TestProviderKeyID,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, redirectURI, state, errorCode, errorMessage string) {
	v := url.Values{}
	v.Set("error", errorCode)
	if state != "" {
		v.Set("state", state)
	}
	if errorMessage != "" {
		v.Set("error_description", errorMessage)
	}
	http.Redirect(w, req, redirectURI+"?"+v.Encode(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	_ = p.writeJSON(w, &body)
}

// verifyClientJWT verifies a JWT signed by the client and returns its claims.
func (p *TestProvider) verifyClientJWT(raw string) (map[string]interface{}, error) {
	if p.clientPublicKey == nil {
		return nil, fmt.Errorf("no client public key configured")
	}
	token, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{
		jose.RS256, jose.RS384, jose.RS512, jose.ES256, jose.ES384, jose.ES512, jose.EdDSA,
	})
	if err != nil {
		return nil, err
	}
	var claims map[string]interface{}
	if err := token.Claims(p.clientPublicKey, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer             string   `json:"issuer"`
			AuthEndpoint       string   `json:"authorization_endpoint"`
			TokenEndpoint      string   `json:"token_endpoint"`
			JWKSURI            string   `json:"jwks_uri"`
			UserinfoEndpoint   string   `json:"userinfo_endpoint"`
			EndSessionEndpoint string   `json:"end_session_endpoint"`
			IDTokenAlgs        []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/authorize",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/.well-known/jwks.json",
			UserinfoEndpoint:   p.Addr() + "/userinfo",
			EndSessionEndpoint: p.Addr() + "/logout",
			IDTokenAlgs:        []string{string(ES256)},
		}
		_ = p.writeJSON(w, &reply)

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		p.lastAuthRequest = qv
		p.lastRequestObject = nil

		params := map[string]string{}
		for k := range qv {
			params[k] = qv.Get(k)
		}
		if raw := qv.Get("request"); raw != "" {
			claims, err := p.verifyClientJWT(raw)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = p.writeJSON(w, map[string]string{"error": "invalid_request_object", "error_description": err.Error()})
				return
			}
			p.lastRequestObject = claims
			for _, k := range []string{"redirect_uri", "state", "nonce"} {
				if s, ok := claims[k].(string); ok {
					params[k] = s
				}
			}
		}

		redirectURI := params["redirect_uri"]
		if redirectURI == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = p.writeJSON(w, map[string]string{"error": "invalid_request", "error_description": "missing redirect_uri"})
			return
		}
		state := params["state"]
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "unsupported_response_type", "")
			return
		case !strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, redirectURI, state, "invalid_scope", "")
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "access_denied", "")
			return
		case state == "":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "invalid_request", "missing state parameter")
			return
		}
		p.replyNonce = params["nonce"]
		v := url.Values{}
		v.Set("state", state)
		v.Set("code", p.expectedAuthCode)
		http.Redirect(w, req, redirectURI+"?"+v.Encode(), http.StatusFound)

	case "/.well-known/jwks.json":
		if p.disableJWKS {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks())

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := req.ParseForm(); err != nil {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		p.lastTokenRequest = req.PostForm

		switch {
		case req.PostForm.Get("client_secret") != "":
			if req.PostForm.Get("client_id") != p.clientID || req.PostForm.Get("client_secret") != p.clientSecret {
				p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad client credentials")
				return
			}
			p.lastTokenAuth = ClientSecretPost
		case req.PostForm.Get("client_assertion_type") == clientassertion.JWTTypeParam:
			claims, err := p.verifyClientJWT(req.PostForm.Get("client_assertion"))
			if err != nil {
				p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", err.Error())
				return
			}
			if claims["iss"] != p.clientID || claims["sub"] != p.clientID {
				p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "assertion iss and sub must be the client id")
				return
			}
			if !audienceContains(claims["aud"], p.Addr()+"/token") {
				p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "assertion aud must be the token endpoint")
				return
			}
			p.lastClientAssertion = claims
			p.lastTokenAuth = PrivateKeyJWT
		default:
			p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "no client authentication")
			return
		}

		switch {
		case req.PostForm.Get("grant_type") != "authorization_code":
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, req.PostForm.Get("redirect_uri")):
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case p.expectedAuthCode == "" || req.PostForm.Get("code") != p.expectedAuthCode:
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		case p.expectedCodeVerifier != "" && req.PostForm.Get("code_verifier") != p.expectedCodeVerifier:
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected code_verifier")
			return
		}

		now := time.Now()
		claims := map[string]interface{}{
			"iss": p.Addr(),
			"sub": p.replySubject,
			"aud": p.clientID,
			"iat": now.Unix(),
			"exp": now.Add(5 * time.Minute).Unix(),
		}
		if p.replyNonce != "" {
			claims["nonce"] = p.replyNonce
		}
		for k, v := range p.customClaims {
			claims[k] = v
		}
		idToken, err := p.sign(claims)
		if err != nil {
			p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}

		reply := struct {
			AccessToken string `json:"access_token,omitempty"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int    `json:"expires_in,omitempty"`
			IDToken     string `json:"id_token,omitempty"`
		}{
			AccessToken: p.expectedAccessToken,
			TokenType:   "Bearer",
			ExpiresIn:   p.replyExpiresIn,
			IDToken:     idToken,
		}
		if p.omitIDToken {
			reply.IDToken = ""
		}
		if p.omitAccessToken {
			reply.AccessToken = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if req.Header.Get("Authorization") != "Bearer "+p.expectedAccessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		reply := map[string]interface{}{"sub": p.replySubject}
		for k, v := range p.replyUserinfo {
			reply[k] = v
		}
		_ = p.writeJSON(w, reply)

	case "/logout":
		qv := req.URL.Query()
		p.lastLogoutRequest = qv
		target := qv.Get("post_logout_redirect_uri")
		if target == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if state := qv.Get("state"); state != "" {
			target += "?" + url.Values{"state": {state}}.Encode()
		}
		http.Redirect(w, req, target, http.StatusFound)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func audienceContains(aud interface{}, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []interface{}:
		for _, a := range v {
			if s, ok := a.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
