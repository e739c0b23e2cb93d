package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateNonce returns a random id suitable for state nonces and
// storage object keys.
func GenerateNonce() (string, error) {
	return gonanoid.New()
}

// GeneratePKCEVerifier returns a high-entropy code verifier per RFC 7636.
func GeneratePKCEVerifier() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// PKCEChallenge derives the S256 code challenge for a verifier.
func PKCEChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
