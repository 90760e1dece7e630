// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithNow provides an optional func for determining what the current time it
// is.
//
// Valid for: Config, Tk, Request and Provider
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *configOptions:
			v.withNowFunc = now
		case *tokenOptions:
			v.withNowFunc = now
		case *reqOptions:
			v.withNowFunc = now
		case *providerOptions:
			v.withNowFunc = now
		}
	}
}

// WithLogger provides an optional hclog.Logger.
//
// Valid for: Provider, Request and JWKSHandler
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *providerOptions:
			v.withLogger = l
		case *reqOptions:
			v.withLogger = l
		case *jwksOptions:
			v.withLogger = l
		}
	}
}

// WithNonce provides an optional nonce.
//
// Valid for: Request and Provider.VerifyIDToken
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *reqOptions:
			v.withNonce = nonce
		case *verifyOptions:
			v.withNonce = nonce
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration.
//
// Valid for: Tk
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*tokenOptions); ok {
			v.withExpirySkew = d
		}
	}
}
