package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) string {
	return hex.EncodeToString(sum(payload, secret))
}

// Verify reports whether provided is the HMAC-SHA256 of payload under secret.
// Both "<hex>" and "sha256=<hex>" forms are accepted. Empty inputs are never valid.
//
// The provided value is always decoded into a fixed 32-byte buffer before the
// constant-time comparison, so malformed or wrong-length signatures take the
// same path as well-formed ones.
func Verify(payload []byte, provided, secret string) bool {
	if len(payload) == 0 || provided == "" || secret == "" {
		return false
	}

	expected := sum(payload, secret)
	actual, wellFormed := decodeSignature(provided)

	return subtle.ConstantTimeCompare(expected, actual)&wellFormed == 1
}

// TokensEqual compares two shared tokens in constant time. Both sides are hashed
// first so the comparison never depends on the provided token's length.
func TokensEqual(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func sum(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func decodeSignature(signature string) ([]byte, int) {
	buf := make([]byte, sha256.Size)
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")

	if len(signature) != hex.EncodedLen(sha256.Size) {
		return buf, 0
	}
	if _, err := hex.Decode(buf, []byte(signature)); err != nil {
		return make([]byte, sha256.Size), 0
	}
	return buf, 1
}
