// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clientassertion

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

func ExampleNewJWTWithECKey() {
	tokenEndpoint := "https://oidc.example.com/token"
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal(err)
	}
	j, err := NewJWTWithECKey("client-id", []string{tokenEndpoint}, ES256, privKey,
		// the kid the public key is published under in the relying party's
		// jwks
		WithKeyID("rp-signing-key"),
	)
	if err != nil {
		log.Fatal(err)
	}
	assertion, err := j.Serialize()
	if err != nil {
		log.Fatal(err)
	}

	// the provider's side of private_key_jwt
	token, err := jwt.ParseSigned(assertion, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		log.Fatal(err)
	}
	h := token.Headers[0]
	fmt.Printf("Headers - KeyID: %s; Algorithm: %s; typ: %s\n", h.KeyID, h.Algorithm, h.ExtraHeaders["typ"])
	var claims jwt.Claims
	if err := token.Claims(&privKey.PublicKey, &claims); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Claims  - Issuer: %s; Subject: %s; Audience: %v\n", claims.Issuer, claims.Subject, claims.Audience)

	// Output:
	// Headers - KeyID: rp-signing-key; Algorithm: ES256; typ: JWT
	// Claims  - Issuer: client-id; Subject: client-id; Audience: [https://oidc.example.com/token]
}
