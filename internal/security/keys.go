package security

import (
	"crypto"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when a value holds no usable RSA or ECDSA key.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM returns s when it is inline PEM and otherwise reads the file it names.
// Escaped newlines from single-line env values are expanded.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// ParsePublicKey loads the key that verifies access tokens. RSA is tried before ECDSA.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	b, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	if k, err := jwt.ParseRSAPublicKeyFromPEM(b); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPublicKeyFromPEM(b); err == nil {
		return k, nil
	}
	return nil, ErrInvalidKey
}

// ParsePrivateKey loads a signing key. Only tooling and tests sign tokens.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	b, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	if k, err := jwt.ParseRSAPrivateKeyFromPEM(b); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPrivateKeyFromPEM(b); err == nil {
		return k, nil
	}
	return nil, ErrInvalidKey
}
