// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import "errors"

var (
	ErrRequestNotFound = errors.New("auth request not found")
	ErrStateMismatch   = errors.New("authen state and response state are not equal")
	ErrMissingCode     = errors.New("authorization code is missing")
)
