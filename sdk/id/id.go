// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package id generates the opaque random values used as state, nonce and
// subject identifiers.
package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// DefaultByteLen is the number of random bytes used when none is given. It
// encodes to 43 url safe characters.
const DefaultByteLen = 32

// New generates a url safe random ID with an optional prefix. A byteLen <= 0
// uses DefaultByteLen.
func New(optionalPrefix string, byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = DefaultByteLen
	}
	b, err := uuid.GenerateRandomBytes(byteLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(b)
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// NewUUID generates a random RFC 4122 formatted id.
func NewUUID() (string, error) {
	u, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate uuid: %w", err)
	}
	return u, nil
}
