package security

import (
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// Calculated using: echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got := Sign(payload, secret)

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
}

func TestVerify(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"event":"push","repository":"test"}`)
	sig := Sign(body, secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{"plain hex", body, sig, secret, true},
		{"prefixed hex", body, "sha256=" + sig, secret, true},
		{"uppercase hex", body, strings.ToUpper(sig), secret, true},
		{"wrong signature", body, strings.Repeat("0", 64), secret, false},
		{"tampered body", []byte(`{"event":"push","repository":"hacked"}`), sig, secret, false},
		{"wrong secret", body, sig, "other-secret", false},
		{"truncated signature", body, sig[:62], secret, false},
		{"extended signature", body, sig + "00", secret, false},
		{"malformed hex", body, strings.Repeat("zz", 32), secret, false},
		{"empty signature", body, "", secret, false},
		{"empty secret", body, sig, "", false},
		{"empty payload", nil, sig, secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.body, tt.signature, tt.secret); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyAgreesWithSign(t *testing.T) {
	payloads := []string{"a", `{"type":"payment_intent.succeeded"}`, strings.Repeat("x", 4096)}
	secrets := []string{"s", GenerateSecret(), "whsec_" + GenerateSecret()}

	for _, p := range payloads {
		for _, s := range secrets {
			sig := Sign([]byte(p), s)
			if !Verify([]byte(p), sig, s) {
				t.Errorf("signature for %q rejected under its own secret", p)
			}
			if Verify([]byte(p), sig, s+"x") {
				t.Errorf("signature for %q accepted under a different secret", p)
			}
		}
	}
}

func TestTokensEqual(t *testing.T) {
	if !TokensEqual("abc123", "abc123") {
		t.Error("identical tokens should match")
	}
	if TokensEqual("wrong", "abc123") {
		t.Error("different tokens should not match")
	}
	if TokensEqual("abc12", "abc123") {
		t.Error("prefix should not match")
	}
	if TokensEqual("", "") {
		t.Error("empty tokens should never match")
	}
}
