// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/rpstub/cap/did"
)

// Result is the outcome of validating a core identity assertion.
type Result string

const (
	Valid        Result = "VALID"
	Invalid      Result = "INVALID"
	NotValidated Result = "NOT_VALIDATED"
)

// supportedAlgs are the signature algorithms accepted on an assertion.
var supportedAlgs = []jose.SignatureAlgorithm{jose.ES256, jose.ES384, jose.ES512}

// Validator checks the signature on a core identity assertion.
type Validator interface {
	IsValid(ctx context.Context, assertion string) (Result, error)
}

// NewValidator returns a Validator for assertions signed by keys published in
// the did:web document at documentURL. An empty documentURL returns a
// Validator that reports NotValidated for everything without parsing it.
//
// Options supported: WithResolver, WithResolverOptions and WithLogger
func NewValidator(documentURL string, opt ...Option) (Validator, error) {
	const op = "identity.NewValidator"
	opts := getValidatorOpts(opt...)
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" && opts.withResolver == nil {
		opts.withLogger.Debug("no identity signing key URL, core identity will not be validated")
		return noopValidator{}, nil
	}
	r := opts.withResolver
	if r == nil {
		var err error
		resolverOpts := append([]did.Option{did.WithLogger(opts.withLogger)}, opts.withResolverOpt...)
		if r, err = did.NewResolver(documentURL, resolverOpts...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &LiveValidator{resolver: r, logger: opts.withLogger}, nil
}

type noopValidator struct{}

func (noopValidator) IsValid(context.Context, string) (Result, error) { return NotValidated, nil }

// LiveValidator verifies assertions with keys from a did.Resolver.
type LiveValidator struct {
	resolver *did.Resolver
	logger   hclog.Logger
}

// Resolver returns the validator's key resolver.
func (v *LiveValidator) Resolver() *did.Resolver { return v.resolver }

// IsValid verifies the assertion's signature. A well formed assertion whose
// signature doesn't verify is Invalid with a nil error. Malformed assertions,
// a missing kid and key resolution failures are errors.
func (v *LiveValidator) IsValid(ctx context.Context, assertion string) (Result, error) {
	const op = "LiveValidator.IsValid"
	jws, err := jose.ParseSigned(strings.TrimSpace(assertion), supportedAlgs)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
	}
	if len(jws.Signatures) != 1 {
		return "", fmt.Errorf("%s: expected one signature, got %d: %w", op, len(jws.Signatures), ErrMalformed)
	}
	kid := jws.Signatures[0].Header.KeyID
	if kid == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingKeyID)
	}
	key, err := v.resolver.Resolve(ctx, kid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := jws.Verify(key); err != nil {
		if errors.Is(err, jose.ErrCryptoFailure) {
			v.logger.Warn("core identity signature is invalid", "kid", kid)
			return Invalid, nil
		}
		return "", fmt.Errorf("%s: unable to verify core identity: %w", op, err)
	}
	v.logger.Debug("core identity signature is valid", "kid", kid)
	return Valid, nil
}
