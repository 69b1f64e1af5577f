package jwtx

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Supported HMAC algorithms.
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"

	DefaultAlgorithm = AlgHS256
)

// Signer is our interface for anything that can sign node tokens.
type Signer interface {
	Alg() string
	Sign(NodeClaims) (string, error)
	Validate() error
}

// SecretSource supplies the current signing secret. The connection's
// credential implements it, so rotating the node secret re-keys every
// signer and verifier reading from it.
type SecretSource interface {
	Secret() []byte
}

// StaticSecret is a fixed SecretSource.
type StaticSecret []byte

func (s StaticSecret) Secret() []byte { return s }

// NewSignerHMAC creates an HMAC signer for alg ("HS256", "HS384", "HS512").
func NewSignerHMAC(alg string, secret SecretSource) (*HMACSigner, error) {
	m, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	return &HMACSigner{method: m, secret: secret}, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", AlgHS256:
		return jwt.SigningMethodHS256, nil
	case AlgHS384:
		return jwt.SigningMethodHS384, nil
	case AlgHS512:
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
}
