package webhooks

import (
	"fmt"
	"net/http"
	"strings"

	"hookflo/internal/platform/config"
)

// AuthMode selects how an inbound call proves it holds the webhook's secret.
type AuthMode string

const (
	// AuthModeSharedToken: the caller sends the secret itself in a header.
	AuthModeSharedToken AuthMode = "shared_token"
	// AuthModeHMACSignature: the caller sends HMAC-SHA256(body, secret) in a header.
	AuthModeHMACSignature AuthMode = "hmac_signature"
)

func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(strings.ToLower(strings.TrimSpace(s))) {
	case AuthModeSharedToken:
		return AuthModeSharedToken, nil
	case AuthModeHMACSignature:
		return AuthModeHMACSignature, nil
	}
	return "", fmt.Errorf("unknown auth mode %q", s)
}

var defaultModes = map[string]AuthMode{
	"custom":   AuthModeSharedToken,
	"supabase": AuthModeSharedToken,
	"clerk":    AuthModeHMACSignature,
	"stripe":   AuthModeHMACSignature,
	"github":   AuthModeHMACSignature,
}

// Strategy maps platforms to auth modes and knows where each mode's credential travels.
type Strategy struct {
	modes           map[string]AuthMode
	fallback        AuthMode
	tokenHeader     string
	signatureHeader string
}

func NewStrategy(cfg config.WebhooksConfig) (*Strategy, error) {
	s := &Strategy{
		modes:           make(map[string]AuthMode, len(defaultModes)),
		fallback:        AuthModeSharedToken,
		tokenHeader:     cfg.TokenHeader,
		signatureHeader: cfg.SignatureHeader,
	}
	if s.tokenHeader == "" {
		s.tokenHeader = "x-webhook-token"
	}
	if s.signatureHeader == "" {
		s.signatureHeader = "x-webhook-signature"
	}

	for platform, mode := range defaultModes {
		s.modes[platform] = mode
	}
	for platform, raw := range cfg.AuthModes {
		mode, err := ParseAuthMode(raw)
		if err != nil {
			return nil, fmt.Errorf("webhooks.auth_modes.%s: %w", platform, err)
		}
		s.modes[strings.ToLower(platform)] = mode
	}
	if cfg.DefaultAuthMode != "" {
		mode, err := ParseAuthMode(cfg.DefaultAuthMode)
		if err != nil {
			return nil, fmt.Errorf("webhooks.default_auth_mode: %w", err)
		}
		s.fallback = mode
	}

	return s, nil
}

func (s *Strategy) ModeFor(platform string) AuthMode {
	if mode, ok := s.modes[platform]; ok {
		return mode
	}
	return s.fallback
}

// Credential extracts the caller's credential for mode. Shared tokens may also
// arrive as "Authorization: Bearer <token>".
func (s *Strategy) Credential(mode AuthMode, header http.Header) string {
	if mode == AuthModeHMACSignature {
		return strings.TrimSpace(header.Get(s.signatureHeader))
	}

	if token := strings.TrimSpace(header.Get(s.tokenHeader)); token != "" {
		return token
	}
	auth := header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
