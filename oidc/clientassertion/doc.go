// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Example usage:
//
//	j, err := clientassertion.NewJWTWithRSAKey("client-id", []string{tokenEndpoint},
//		clientassertion.RS512, rsaPrivateKey,
//		clientassertion.WithKeyID("jwks-key-id"),
//	)
//	assertion, err := j.Serialize()
package clientassertion
