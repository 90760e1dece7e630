// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/jwx/v2/jwk"
	sdkhttp "github.com/rpstub/cap/sdk/http"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a single document fetch when the Resolver builds
// its own http client.
const DefaultFetchTimeout = 30 * time.Second

// maxDocumentSize caps how much of a document response is read.
const maxDocumentSize = 1 << 20

// Resolver resolves assertion key ids against one did:web document. Resolved
// keys are cached until the document's Cache-Control max-age runs out.
type Resolver struct {
	documentURL string
	authority   string
	client      *http.Client
	clock       clockwork.Clock
	logger      hclog.Logger
	cache       *Cache
	fetches     singleflight.Group
}

// NewResolver creates a Resolver for the document at documentURL.
//
// Options supported: WithClock, WithHTTPClient, WithLogger and WithCache
func NewResolver(documentURL string, opt ...Option) (*Resolver, error) {
	const op = "did.NewResolver"
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return nil, fmt.Errorf("%s: document URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(documentURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse document URL: %w: %w", op, ErrInvalidParameter, err)
	}
	if u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%s: document URL %q is not absolute: %w", op, documentURL, ErrInvalidParameter)
	}
	opts := getResolverOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		if client, err = sdkhttp.NewClient("", DefaultFetchTimeout); err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	cache := opts.withCache
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{
		documentURL: documentURL,
		authority:   u.Host,
		client:      client,
		clock:       opts.withClock,
		logger:      opts.withLogger,
		cache:       cache,
	}, nil
}

// Cache returns the Resolver's key cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns the public key for keyID, which has the form
// <controller>#<fragment>. A fresh cached key is returned without any network
// access; otherwise the document is fetched and the key it holds replaces
// whatever was cached.
//
// Concurrent misses for the same keyID share one fetch. A caller whose ctx is
// done stops waiting without cancelling the fetch for the others.
func (r *Resolver) Resolve(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	const op = "Resolver.Resolve"
	if keyID == "" {
		return nil, fmt.Errorf("%s: key id is empty: %w", op, ErrInvalidParameter)
	}
	if k, ok := r.cache.Get(r.documentURL, keyID, r.clock.Now()); ok {
		r.logger.Debug("using cached DID key", "kid", keyID)
		return k, nil
	}
	ch := r.fetches.DoChan(keyID, func() (interface{}, error) {
		// another caller may have refreshed the entry while we waited
		if k, ok := r.cache.Get(r.documentURL, keyID, r.clock.Now()); ok {
			return k, nil
		}
		// the fetch is shared, so it must not end when the caller who
		// started it goes away
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultFetchTimeout)
		defer cancel()
		return r.refresh(fetchCtx, keyID)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%s: %w", op, res.Err)
		}
		return res.Val.(crypto.PublicKey), nil
	}
}

func (r *Resolver) refresh(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	const op = "Resolver.refresh"
	controller, _, _ := strings.Cut(keyID, "#")

	r.logger.Info("fetching DID document", "url", r.documentURL)
	now := r.clock.Now()
	doc, ttl, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	expiry := now.Add(ttl)

	vm, ok := doc.Method(keyID)
	if !ok {
		return nil, fmt.Errorf("%s: No key found in DID with ID %s: %w", op, keyID, ErrKeyNotFound)
	}
	if controller != vm.Controller {
		return nil, fmt.Errorf("%s: Controller in User Identity kid does not match DID key value: %s %s: %w",
			op, controller, vm.Controller, ErrControllerMismatch)
	}
	expected := "did:web:" + r.authority
	if decoded := strings.ReplaceAll(controller, "%3A", ":"); decoded != expected {
		return nil, fmt.Errorf("%s: Controller in User Identity kid does not match DID key URL: %s %s: %w",
			op, decoded, expected, ErrControllerMismatch)
	}

	key, err := parsePublicKey(vm.PublicKeyJwk)
	if err != nil {
		return nil, fmt.Errorf("%s: key %s: %w", op, keyID, err)
	}
	r.cache.Set(r.documentURL, keyID, CachedKey{Key: key, Expiry: expiry})
	r.logger.Debug("cached DID key", "kid", keyID, "expiry", expiry)
	return key, nil
}

// fetch retrieves and decodes the document along with its cache lifetime.
func (r *Resolver) fetch(ctx context.Context) (*Document, time.Duration, error) {
	const op = "Resolver.fetch"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.documentURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: unable to fetch DID document: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: unable to read DID document: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Error("DID document could not be fetched", "status", resp.StatusCode)
		return nil, 0, fmt.Errorf("%s: DID document could not be fetched. Status code: %d - %s: %w",
			op, resp.StatusCode, string(body), ErrDocumentFetch)
	}
	doc, err := ParseDocument(body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return doc, maxAge(resp.Header), nil
}

func parsePublicKey(raw []byte) (crypto.PublicKey, error) {
	const op = "did.parsePublicKey"
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: publicKeyJwk is missing: %w", op, ErrInvalidDocument)
	}
	k, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse publicKeyJwk: %w: %w", op, ErrInvalidDocument, err)
	}
	var pub interface{}
	if err := k.Raw(&pub); err != nil {
		return nil, fmt.Errorf("%s: unable to export publicKeyJwk: %w: %w", op, ErrInvalidDocument, err)
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: publicKeyJwk is %T, not an EC public key: %w", op, pub, ErrInvalidDocument)
	}
	return ec, nil
}
