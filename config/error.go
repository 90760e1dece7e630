// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import "errors"

var (
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrProfileNotFound      = errors.New("requested RP not present in configuration")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
