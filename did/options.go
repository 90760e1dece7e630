// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
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

type resolverOptions struct {
	withClock      clockwork.Clock
	withHTTPClient *http.Client
	withLogger     hclog.Logger
	withCache      *Cache
}

func resolverDefaults() resolverOptions {
	return resolverOptions{
		withClock:  clockwork.NewRealClock(),
		withLogger: hclog.NewNullLogger(),
	}
}

func getResolverOpts(opt ...Option) resolverOptions {
	opts := resolverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClock provides an optional clock used to decide cache freshness.
func WithClock(c clockwork.Clock) Option {
	return func(o interface{}) {
		if c == nil {
			return
		}
		if v, ok := o.(*resolverOptions); ok {
			v.withClock = c
		}
	}
}

// WithHTTPClient provides an optional http client for document fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if v, ok := o.(*resolverOptions); ok {
			v.withHTTPClient = c
		}
	}
}

// WithLogger provides an optional hclog.Logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		if v, ok := o.(*resolverOptions); ok {
			v.withLogger = l
		}
	}
}

// WithCache provides an optional Cache, which lets several Resolvers share
// resolved keys.
func WithCache(c *Cache) Option {
	return func(o interface{}) {
		if v, ok := o.(*resolverOptions); ok {
			v.withCache = c
		}
	}
}
