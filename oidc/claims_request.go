// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Claim names the provider understands beyond the standard OIDC claims.
const (
	CoreIdentityClaim         = "https://vocab.account.gov.uk/v1/coreIdentityJWT"
	ReturnCodeClaim           = "https://vocab.account.gov.uk/v1/returnCode"
	AddressClaim              = "https://vocab.account.gov.uk/v1/address"
	PassportClaim             = "https://vocab.account.gov.uk/v1/passport"
	DrivingPermitClaim        = "https://vocab.account.gov.uk/v1/drivingPermit"
	SocialSecurityRecordClaim = "https://vocab.account.gov.uk/v1/socialSecurityRecord"
	InheritedIdentityClaim    = "https://vocab.account.gov.uk/v1/inheritedIdentityJWT"
	WalletSubjectIDClaim      = "wallet_subject_id"
	DocAppCredentialClaim     = "doc-app-credential"
)

const userinfoMember = "userinfo"

// ClaimsRequestEntry is a single requested userinfo claim.
type ClaimsRequestEntry struct {
	Name      string
	Essential bool
	Values    []string
}

func (e ClaimsRequestEntry) marshalValue() ([]byte, error) {
	if !e.Essential && len(e.Values) == 0 {
		return []byte("null"), nil
	}
	v := struct {
		Essential bool     `json:"essential,omitempty"`
		Values    []string `json:"values,omitempty"`
	}{
		Essential: e.Essential,
		Values:    e.Values,
	}
	return json.Marshal(v)
}

// ClaimsRequest is an ordered set of userinfo claims requests. Its JSON form is
// the OIDC "claims" request parameter with a single "userinfo" member, and
// entries keep the order they were added in.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#ClaimsParameter
type ClaimsRequest struct {
	entries []ClaimsRequestEntry
}

// NewClaimsRequest returns a ClaimsRequest holding the entries.
func NewClaimsRequest(entries ...ClaimsRequestEntry) *ClaimsRequest {
	c := &ClaimsRequest{}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

// Add appends the entry, replacing any existing entry with the same name in
// place.
func (c *ClaimsRequest) Add(e ClaimsRequestEntry) *ClaimsRequest {
	for i := range c.entries {
		if c.entries[i].Name == e.Name {
			c.entries[i] = e
			return c
		}
	}
	c.entries = append(c.entries, e)
	return c
}

// AddEssential appends an essential entry for each name.
func (c *ClaimsRequest) AddEssential(names ...string) *ClaimsRequest {
	for _, n := range names {
		c.Add(ClaimsRequestEntry{Name: n, Essential: true})
	}
	return c
}

// AddInheritedIdentity requests the inherited identity claim carrying the
// signed assertion as its only value.
func (c *ClaimsRequest) AddInheritedIdentity(signedJWT string) *ClaimsRequest {
	return c.Add(ClaimsRequestEntry{Name: InheritedIdentityClaim, Values: []string{signedJWT}})
}

// Delete removes the named entry if present.
func (c *ClaimsRequest) Delete(name string) {
	for i := range c.entries {
		if c.entries[i].Name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Entries returns a copy of the entries in order.
func (c *ClaimsRequest) Entries() []ClaimsRequestEntry {
	if c == nil {
		return nil
	}
	cp := make([]ClaimsRequestEntry, len(c.entries))
	copy(cp, c.entries)
	return cp
}

// Len returns the number of entries.
func (c *ClaimsRequest) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// MarshalJSON encodes the request. An empty request is "{}".
func (c *ClaimsRequest) MarshalJSON() ([]byte, error) {
	const op = "ClaimsRequest.MarshalJSON"
	if c.Len() == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString(`{"` + userinfoMember + `":{`)
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v, err := e.marshalValue()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// String returns the JSON encoding, "{}" when the request is empty.
func (c *ClaimsRequest) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UnmarshalJSON decodes the request keeping the order of the userinfo
// members.
func (c *ClaimsRequest) UnmarshalJSON(data []byte) error {
	const op = "ClaimsRequest.UnmarshalJSON"
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidClaimsRequest, err)
	}
	c.entries = nil
	for k := range top {
		if k != userinfoMember {
			return fmt.Errorf("%s: unsupported member %q: %w", op, k, ErrInvalidClaimsRequest)
		}
	}
	raw, ok := top[userinfoMember]
	if !ok || string(raw) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidClaimsRequest, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%s: userinfo is not an object: %w", op, ErrInvalidClaimsRequest)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrInvalidClaimsRequest, err)
		}
		name, _ := tok.(string)
		var v *struct {
			Essential bool     `json:"essential"`
			Value     *string  `json:"value"`
			Values    []string `json:"values"`
		}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%s: claim %q: %w: %w", op, name, ErrInvalidClaimsRequest, err)
		}
		e := ClaimsRequestEntry{Name: name}
		if v != nil {
			e.Essential = v.Essential
			e.Values = v.Values
			if v.Value != nil {
				e.Values = append([]string{*v.Value}, e.Values...)
			}
		}
		c.entries = append(c.entries, e)
	}
	return nil
}

// ParseClaimsRequest decodes the JSON form of a claims request.
func ParseClaimsRequest(s string) (*ClaimsRequest, error) {
	const op = "ParseClaimsRequest"
	c := &ClaimsRequest{}
	if err := c.UnmarshalJSON([]byte(s)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
