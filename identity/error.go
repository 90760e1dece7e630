// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package identity

import "errors"

var (
	ErrMissingKeyID = errors.New("no kid present in core identity")
	ErrMalformed    = errors.New("malformed core identity")
)
