package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueToken returns a cryptographically random 64-character hex token,
// used for invitation tokens and refresh tokens.
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
