// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// UserInfo is the claim set returned by the provider's userinfo endpoint.
type UserInfo struct {
	Subject       string
	Email         string
	EmailVerified bool

	claims map[string]json.RawMessage
}

func newUserInfo(info *oidc.UserInfo) (*UserInfo, error) {
	const op = "newUserInfo"
	u := &UserInfo{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
	}
	if err := info.Claims(&u.claims); err != nil {
		return nil, fmt.Errorf("%s: unable to get claims: %w", op, err)
	}
	return u, nil
}

// Has reports whether the claim is present and not null.
func (u *UserInfo) Has(name string) bool {
	raw, ok := u.claims[name]
	return ok && string(raw) != "null"
}

// Claim unmarshals the named claim into v. A missing claim leaves v untouched.
func (u *UserInfo) Claim(name string, v interface{}) error {
	const op = "UserInfo.Claim"
	raw, ok := u.claims[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: claim %q: %w", op, name, err)
	}
	return nil
}

// Claims unmarshals every claim into v.
func (u *UserInfo) Claims(v interface{}) error {
	const op = "UserInfo.Claims"
	b, err := json.Marshal(u.claims)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (u *UserInfo) stringClaim(name string) string {
	var s string
	_ = u.Claim(name, &s)
	return s
}

// PhoneNumber returns the phone_number claim.
func (u *UserInfo) PhoneNumber() string { return u.stringClaim("phone_number") }

// CoreIdentityJWT returns the signed core identity assertion, empty when the
// claim wasn't returned.
func (u *UserInfo) CoreIdentityJWT() string { return u.stringClaim(CoreIdentityClaim) }

// WalletSubjectID returns the wallet_subject_id claim.
func (u *UserInfo) WalletSubjectID() string { return u.stringClaim(WalletSubjectIDClaim) }

// DocAppCredentials returns the credentials a document checking app
// returned.
func (u *UserInfo) DocAppCredentials() []string {
	var creds []string
	_ = u.Claim(DocAppCredentialClaim, &creds)
	return creds
}

// ReturnCodes returns the codes of the returnCode claim.
func (u *UserInfo) ReturnCodes() []string {
	var rc []struct {
		Code string `json:"code"`
	}
	_ = u.Claim(ReturnCodeClaim, &rc)
	codes := make([]string, 0, len(rc))
	for _, c := range rc {
		codes = append(codes, c.Code)
	}
	return codes
}
