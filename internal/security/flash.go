package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const flashTTL = 5 * time.Minute

// FlashSigner signs one-shot status messages carried in a cookie between a
// POST and the page it redirects to.
type FlashSigner struct {
	secret []byte
}

type flashClaims struct {
	Message string `json:"msg"`
	Kind    string `json:"kind"`
	jwt.RegisteredClaims
}

// NewFlashSigner creates a signer keyed with secret
func NewFlashSigner(secret string) *FlashSigner {
	return &FlashSigner{secret: []byte(secret)}
}

// Sign encodes a message of the given kind ("success", "error") into a compact token
func (f *FlashSigner) Sign(kind, message string) (string, error) {
	claims := flashClaims{
		Message: message,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(f.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign flash message: %w", err)
	}
	return signed, nil
}

// Verify decodes a token produced by Sign, rejecting tampered or stale values
func (f *FlashSigner) Verify(value string) (kind, message string, err error) {
	claims := &flashClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return f.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", errors.New("invalid flash token")
	}
	return claims.Kind, claims.Message, nil
}
