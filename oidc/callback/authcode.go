// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/rpstub/cap/identity"
	"github.com/rpstub/cap/oidc"
)

// AuthCode creates an oidc authorization code callback handler. It exchanges
// the code, verifies the id_token, fetches the user info and, for web
// clients, checks the signature of any core identity claim.
//
// When rr is nil the handler doesn't look the request up by state: the
// profile's RedirectURL is used for the exchange and neither the nonce nor a
// PKCE verifier is checked. Otherwise the request read for the response's
// state supplies all three.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
//
// Options supported: WithValidator and WithLogger
func AuthCode(p *oidc.Provider, rr RequestReader, sFn SuccessResponseFunc, eFn ErrorResponseFunc, opt ...Option) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case p == nil:
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oidc.ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oidc.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oidc.ErrInvalidParameter)
	}
	opts := getAuthCodeOpts(opt...)
	v := opts.withValidator
	if v == nil {
		var err error
		v, err = identity.NewValidator(p.Config().IdentitySigningKeyURL, identity.WithLogger(opts.withLogger))
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create core identity validator: %w", op, err)
		}
	}
	logger := opts.withLogger

	return func(w http.ResponseWriter, req *http.Request) {
		const op = "callback.AuthCode"
		ctx := req.Context()
		logger.Info("callback received")

		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found
		reqState := req.FormValue("state")
		if err := req.FormValue("error"); err != "" {
			logger.Error("error response in callback", "error", err)
			reqError := &AuthenErrorResponse{
				Error:       err,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			eFn(reqState, reqError, nil, w, req)
			return
		}
		reqCode := req.FormValue("code")
		if reqCode == "" {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, ErrMissingCode), w, req)
			return
		}

		redirectURL := p.Config().RedirectURL
		var (
			nonce    string
			verifier string
		)
		if rr != nil {
			oidcRequest, err := rr.Read(ctx, reqState)
			if err != nil {
				eFn(reqState, nil, fmt.Errorf("%s: unable to read auth request: %w", op, err), w, req)
				return
			}
			if oidcRequest == nil {
				// could have been used already or it could be invalid
				eFn(reqState, nil, fmt.Errorf("%s: %w", op, ErrRequestNotFound), w, req)
				return
			}
			if oidcRequest.State() != reqState {
				eFn(reqState, nil, fmt.Errorf("%s: %w", op, ErrStateMismatch), w, req)
				return
			}
			redirectURL = oidcRequest.RedirectURL()
			nonce = oidcRequest.Nonce()
			if cv := oidcRequest.PKCEVerifier(); cv != nil {
				verifier = cv.Verifier()
			}
		}

		tk, err := p.Exchange(ctx, reqCode, redirectURL, verifier)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		var verifyOpts []oidc.Option
		if nonce != "" {
			verifyOpts = append(verifyOpts, oidc.WithNonce(nonce))
		}
		claims, err := p.VerifyIDToken(ctx, tk.IDToken(), verifyOpts...)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		info, err := p.UserInfo(ctx, tk.AccessToken())
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}

		r := &Result{Token: tk, IDTokenClaims: claims, UserInfo: info}
		if p.Config().ClientType != oidc.AppClient {
			if coreIdentity := info.CoreIdentityJWT(); coreIdentity != "" {
				r.CoreIdentity, err = v.IsValid(ctx, coreIdentity)
				if err != nil {
					eFn(reqState, nil, fmt.Errorf("%s: unable to validate core identity: %w", op, err), w, req)
					return
				}
				logger.Info("core identity validated", "result", r.CoreIdentity)
			}
		}
		sFn(reqState, r, w, req)
	}, nil
}

type authCodeOptions struct {
	withValidator identity.Validator
	withLogger    hclog.Logger
}

func authCodeDefaults() authCodeOptions {
	return authCodeOptions{withLogger: hclog.NewNullLogger()}
}

func getAuthCodeOpts(opt ...Option) authCodeOptions {
	opts := authCodeDefaults()
	oidc.ApplyOpts(&opts, opt...)
	return opts
}

// Option is the oidc functional option type, so oidc options can be mixed in.
type Option = oidc.Option

// WithValidator provides the core identity validator. By default one is built
// from the profile's IdentitySigningKeyURL.
func WithValidator(v identity.Validator) Option {
	return func(o interface{}) {
		if opts, ok := o.(*authCodeOptions); ok {
			opts.withValidator = v
		}
	}
}

// WithLogger provides an optional hclog.Logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if opts, ok := o.(*authCodeOptions); ok && l != nil {
			opts.withLogger = l
		}
	}
}
