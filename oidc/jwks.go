// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// JWKSCacheControl is sent with the published key set.
const JWKSCacheControl = "max-age=86400"

// JWKSHandler returns an http.Handler which publishes the public half of the
// signing key as a JWK set, so the provider can verify request objects and
// client assertions.
//
// Supported options:
//   - WithLogger
func JWKSHandler(key *SigningKey, opt ...Option) (http.Handler, error) {
	const op = "JWKSHandler"
	if key == nil {
		return nil, fmt.Errorf("%s: signing key is nil: %w", op, ErrNilParameter)
	}
	opts := getJWKSOpts(opt...)
	body, err := json.Marshal(key.PublicJWKS())
	if err != nil {
		return nil, fmt.Errorf("%s: unable to marshal key set: %w", op, err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		opts.withLogger.Info("returning jwk", "kid", key.KeyID())
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", JWKSCacheControl)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}), nil
}

type jwksOptions struct {
	withLogger hclog.Logger
}

func jwksDefaults() jwksOptions {
	return jwksOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getJWKSOpts(opt ...Option) jwksOptions {
	opts := jwksDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
