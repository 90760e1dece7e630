// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package oidc is the relying party side of an OpenID Connect login. It
// builds authentication requests, either as plain query parameters or as a
// signed request object, exchanges authorization codes using
// client_secret_post or private_key_jwt, verifies id_tokens, fetches user
// info, and builds logout requests and checks back-channel logout tokens.
//
// A Provider is created from a Config, one relying party profile:
//
//	c, err := oidc.NewConfig(issuer, clientID, signingKey, redirectURL)
//	p, err := oidc.NewProvider(c)
//	defer p.Done()
//
//	r, err := oidc.NewRequest(redirectURL, oidc.WithVTR(oidc.VTR{"Cl.Cm"}))
//	authURL, err := p.AuthURL(ctx, r, oidc.RequestModeObject)
//
//	tk, err := p.Exchange(ctx, code, r.RedirectURL(), "")
//	claims, err := p.VerifyIDToken(ctx, tk.IDToken(), oidc.WithNonce(r.Nonce()))
//	info, err := p.UserInfo(ctx, tk.AccessToken())
package oidc
