// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"github.com/hashicorp/go-hclog"
	"github.com/rpstub/cap/did"
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

type validatorOptions struct {
	withResolver    *did.Resolver
	withResolverOpt []did.Option
	withLogger      hclog.Logger
}

func validatorDefaults() validatorOptions {
	return validatorOptions{withLogger: hclog.NewNullLogger()}
}

func getValidatorOpts(opt ...Option) validatorOptions {
	opts := validatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithResolver provides a Resolver to share instead of creating one for the
// document URL.
func WithResolver(r *did.Resolver) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok {
			v.withResolver = r
		}
	}
}

// WithResolverOptions provides options for the Resolver the validator creates.
// They're ignored when WithResolver is used.
func WithResolverOptions(opt ...did.Option) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok {
			v.withResolverOpt = append(v.withResolverOpt, opt...)
		}
	}
}

// WithLogger provides an optional hclog.Logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		if v, ok := o.(*validatorOptions); ok {
			v.withLogger = l
		}
	}
}
