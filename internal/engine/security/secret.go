// Package security issues webhook secrets, protects them at rest and computes the
// HMAC signatures exchanged with webhook sources.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const secretBytes = 32

// GenerateSecret returns 32 random bytes as 64 lowercase hex characters.
// It panics if the entropy source fails; the process cannot issue secrets without it.
func GenerateSecret() string {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("security: entropy source unavailable: %v", err))
	}
	return hex.EncodeToString(b)
}
