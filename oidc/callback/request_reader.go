// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rpstub/cap/oidc"
)

// RequestReader defines an interface for finding and reading an oidc.Request
//
// Implementations must be concurrently safe, since the reader will likely be
// used within a concurrent http.Handler
type RequestReader interface {
	// Read an existing Request entry. The returned request's State()
	// must match the state used to look it up. A nil Request with a nil
	// error means there's no such request.
	Read(ctx context.Context, state string) (oidc.Request, error)
}

// SingleRequestReader implements the RequestReader interface for a single request.
// It is concurrently safe.
type SingleRequestReader struct {
	Request oidc.Request
}

// Read will return its single request if the state matches its
// Request.State(), otherwise it returns ErrRequestNotFound.
func (sr *SingleRequestReader) Read(_ context.Context, state string) (oidc.Request, error) {
	const op = "SingleRequestReader.Read"
	if sr.Request == nil || sr.Request.State() != state {
		return nil, fmt.Errorf("%s: %w", op, ErrRequestNotFound)
	}
	return sr.Request, nil
}

// DefaultRequestTTL is how long a RequestStore keeps a request nobody reads.
const DefaultRequestTTL = time.Hour

// RequestStore is a RequestReader that remembers the requests a relying party
// sends, keyed by state. Read removes the request so a state can't be
// replayed, and a request that's never read is dropped once its ttl passes.
type RequestStore struct {
	// mu makes Read's lookup and removal one step
	mu       sync.Mutex
	requests *cache.Cache
}

// NewRequestStore returns an empty RequestStore whose requests expire after
// ttl. A ttl <= 0 means DefaultRequestTTL.
func NewRequestStore(ttl time.Duration) *RequestStore {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	return &RequestStore{requests: cache.New(ttl, ttl)}
}

// Add stores r under its state.
func (s *RequestStore) Add(r oidc.Request) error {
	const op = "RequestStore.Add"
	if r == nil {
		return fmt.Errorf("%s: request is nil: %w", op, oidc.ErrNilParameter)
	}
	s.requests.SetDefault(r.State(), r)
	return nil
}

// Read returns and forgets the request for state. An expired request reads as
// absent.
func (s *RequestStore) Read(_ context.Context, state string) (oidc.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.requests.Get(state)
	if !ok {
		return nil, nil
	}
	s.requests.Delete(state)
	r, _ := v.(oidc.Request)
	return r, nil
}

// Len is the number of stored requests, including expired ones not yet
// cleaned up.
func (s *RequestStore) Len() int {
	return s.requests.ItemCount()
}
