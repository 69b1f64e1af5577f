package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var _ Signer = (*HMACSigner)(nil)

// HMACSigner implements the Signer interface with a shared secret.
type HMACSigner struct {
	method *jwt.SigningMethodHMAC
	secret SecretSource
}

func (s *HMACSigner) Alg() string { return s.method.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HMACSigner) Sign(claims NodeClaims) (string, error) {
	key, err := s.key()
	if err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(s.method, claims)
	signed, err := t.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Validate makes sure there is a secret to sign with.
func (s *HMACSigner) Validate() error {
	_, err := s.key()
	return err
}

func (s *HMACSigner) key() ([]byte, error) {
	if s.secret == nil {
		return nil, ErrMissingSecret
	}
	key := s.secret.Secret()
	if len(key) == 0 {
		return nil, ErrMissingSecret
	}
	return key, nil
}
