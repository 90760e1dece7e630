// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

// testDocServer serves a did:web document and counts the fetches.
type testDocServer struct {
	t   *testing.T
	srv *httptest.Server

	mu           sync.Mutex
	status       int
	cacheControl string
	body         []byte
	fetches      atomic.Int32
	release      chan struct{}
}

func newTestDocServer(t *testing.T) *testDocServer {
	t.Helper()
	s := &testDocServer{t: t, status: http.StatusOK}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		s.mu.Lock()
		status, cc, body, release := s.status, s.cacheControl, s.body, s.release
		s.mu.Unlock()
		if release != nil {
			<-release
		}
		if cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testDocServer) URL() string { return s.srv.URL + "/.well-known/did.json" }

// Controller is the did:web controller for the server's authority.
func (s *testDocServer) Controller() string {
	u, err := url.Parse(s.srv.URL)
	require.NoError(s.t, err)
	return "did:web:" + strings.ReplaceAll(u.Host, ":", "%3A")
}

func (s *testDocServer) set(status int, cacheControl string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.cacheControl, s.body = status, cacheControl, body
}

func (s *testDocServer) hold() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = make(chan struct{})
	return s.release
}

func (s *testDocServer) Fetches() int { return int(s.fetches.Load()) }

func testECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return k
}

func testPublicJWK(t *testing.T, pub interface{}) json.RawMessage {
	t.Helper()
	k, err := jwk.FromRaw(pub)
	require.NoError(t, err)
	b, err := json.Marshal(k)
	require.NoError(t, err)
	return b
}

// testDocument builds a document with one inline assertion method per key and
// a trailing reference-only entry.
func testDocument(t *testing.T, controller string, keys map[string]*ecdsa.PrivateKey) []byte {
	t.Helper()
	methods := []interface{}{}
	for id, k := range keys {
		methods = append(methods, VerificationMethod{
			ID:           id,
			Type:         "JsonWebKey2020",
			Controller:   controller,
			PublicKeyJwk: testPublicJWK(t, &k.PublicKey),
		})
	}
	methods = append(methods, controller+"#referenced")
	b, err := json.Marshal(map[string]interface{}{
		"@context":        []string{"https://www.w3.org/ns/did/v1"},
		"id":              controller,
		"assertionMethod": methods,
	})
	require.NoError(t, err)
	return b
}
