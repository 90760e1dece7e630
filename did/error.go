// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import "errors"

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrDocumentFetch      = errors.New("DID document fetch failed")
	ErrInvalidDocument    = errors.New("invalid DID document")
	ErrKeyNotFound        = errors.New("key not found in DID document")
	ErrControllerMismatch = errors.New("DID controller mismatch")
)
