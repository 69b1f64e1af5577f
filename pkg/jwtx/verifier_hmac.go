package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var _ Verifier = (*HMACVerifier)(nil)

// HMACVerifier validates tokens signed with the shared node secret.
type HMACVerifier struct {
	method *jwt.SigningMethodHMAC
	secret SecretSource
	opts   VerifyOptions
}

// NewVerifierHMAC creates a verifier that only accepts alg.
func NewVerifierHMAC(alg string, secret SecretSource, opts VerifyOptions) (*HMACVerifier, error) {
	m, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	return &HMACVerifier{method: m, secret: secret, opts: opts}, nil
}

// Verify validates the JWT string and returns its parsed claims.
func (v *HMACVerifier) Verify(tokenStr string) (*NodeClaims, error) {
	if v.secret == nil || len(v.secret.Secret()) == 0 {
		return nil, ErrMissingSecret
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithLeeway(v.opts.Leeway),
	}
	if v.opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(v.opts.Now))
	}
	parser := jwt.NewParser(parserOpts...)

	token, err := parser.ParseWithClaims(tokenStr, &NodeClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret.Secret(), nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*NodeClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return nil, err
	}

	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %w", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}
