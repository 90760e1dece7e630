// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// SigningKey is the relying party's private signing key along with the key id
// it is published under. It signs request objects and client assertions.
type SigningKey struct {
	keyID   string
	private crypto.Signer
	alg     Alg
}

// NewSigningKey parses the encoded private key (see ParsePrivateKey) and
// returns a SigningKey which will stamp keyID into the "kid" header of
// everything it signs. RSA keys sign with RS512 and EC keys with the ES
// algorithm matching their curve.
func NewSigningKey(encoded string, keyID string) (*SigningKey, error) {
	const op = "NewSigningKey"
	priv, err := ParsePrivateKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	alg, err := algForKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &SigningKey{
		keyID:   keyID,
		private: priv,
		alg:     alg,
	}, nil
}

// ParsePrivateKey decodes a private key which is either PEM encoded or the
// bare base64 of its DER bytes (line breaks allowed). PKCS#8, PKCS#1 and SEC 1
// EC encodings are accepted.
func ParsePrivateKey(encoded string) (crypto.Signer, error) {
	const op = "ParsePrivateKey"
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%s: private key is empty: %w", op, ErrInvalidSigningKey)
	}

	var der []byte
	if block, _ := pem.Decode([]byte(encoded)); block != nil {
		der = block.Bytes
	} else {
		stripped := strings.Join(strings.Fields(encoded), "")
		var err error
		der, err = base64.StdEncoding.DecodeString(stripped)
		if err != nil {
			if der, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(stripped, "=")); err != nil {
				return nil, fmt.Errorf("%s: private key is neither PEM nor base64: %w", op, ErrInvalidSigningKey)
			}
		}
	}

	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		signer, ok := k.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%s: unsupported private key type %T: %w", op, k, ErrInvalidSigningKey)
		}
		return signer, nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, fmt.Errorf("%s: unable to parse private key: %w", op, ErrInvalidSigningKey)
}

func algForKey(k crypto.Signer) (Alg, error) {
	const op = "algForKey"
	switch v := k.(type) {
	case *rsa.PrivateKey:
		return RS512, nil
	case *ecdsa.PrivateKey:
		switch v.Curve {
		case elliptic.P256():
			return ES256, nil
		case elliptic.P384():
			return ES384, nil
		case elliptic.P521():
			return ES512, nil
		}
		return "", fmt.Errorf("%s: unsupported curve %s: %w", op, v.Curve.Params().Name, ErrInvalidSigningKey)
	case ed25519.PrivateKey:
		return EdDSA, nil
	default:
		return "", fmt.Errorf("%s: unsupported private key type %T: %w", op, k, ErrInvalidSigningKey)
	}
}

// KeyID returns the published key id.
func (k *SigningKey) KeyID() string { return k.keyID }

// Algorithm returns the alg used when signing.
func (k *SigningKey) Algorithm() Alg { return k.alg }

// PrivateKey returns the private key.
func (k *SigningKey) PrivateKey() crypto.Signer { return k.private }

// PublicKey derives the public half of the signing key.
func (k *SigningKey) PublicKey() crypto.PublicKey { return k.private.Public() }

// Sign serializes the claims into a compact JWS. The claims may be any value
// that marshals to a JSON object.
func (k *SigningKey) Sign(claims interface{}) (string, error) {
	const op = "SigningKey.Sign"
	if claims == nil {
		return "", fmt.Errorf("%s: claims are nil: %w", op, ErrNilParameter)
	}
	sOpts := (&jose.SignerOptions{}).WithType("JWT")
	if k.keyID != "" {
		sOpts = sOpts.WithHeader(jose.HeaderKey("kid"), k.keyID)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.SignatureAlgorithm(k.alg), Key: k.private}, sOpts)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create signer: %w: %w", op, ErrSigningFailed, err)
	}
	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize claims: %w: %w", op, ErrSigningFailed, err)
	}
	return raw, nil
}

// PublicJWKS returns a key set containing only the public signing key, marked
// for signature use.
func (k *SigningKey) PublicJWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       k.PublicKey(),
				KeyID:     k.keyID,
				Algorithm: string(k.alg),
				Use:       "sig",
			},
		},
	}
}
