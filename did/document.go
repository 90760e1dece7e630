// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the subset of a did:web document needed to resolve assertion
// keys.
type Document struct {
	ID string `json:"id"`

	// AssertionMethod holds the inline verification methods. Entries which
	// only reference a method by id are dropped when decoding.
	AssertionMethod []VerificationMethod `json:"assertionMethod"`
}

// VerificationMethod is one key entry of a DID document.
type VerificationMethod struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Controller   string          `json:"controller"`
	PublicKeyJwk json.RawMessage `json:"publicKeyJwk"`
}

// UnmarshalJSON decodes a document, keeping only the inline assertion methods.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              string            `json:"id"`
		AssertionMethod []json.RawMessage `json:"assertionMethod"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID = raw.ID
	d.AssertionMethod = nil
	for _, m := range raw.AssertionMethod {
		if len(bytes.TrimSpace(m)) == 0 || bytes.TrimSpace(m)[0] != '{' {
			continue
		}
		var vm VerificationMethod
		if err := json.Unmarshal(m, &vm); err != nil {
			return err
		}
		d.AssertionMethod = append(d.AssertionMethod, vm)
	}
	return nil
}

// ParseDocument decodes a DID document.
func ParseDocument(b []byte) (*Document, error) {
	const op = "did.ParseDocument"
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidDocument, err)
	}
	return &d, nil
}

// Method returns the assertion method with the id.
func (d *Document) Method(id string) (VerificationMethod, bool) {
	for _, m := range d.AssertionMethod {
		if m.ID == id {
			return m, true
		}
	}
	return VerificationMethod{}, false
}
