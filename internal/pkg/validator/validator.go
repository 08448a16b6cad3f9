package validator

import (
	"errors"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var platformName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Email accepts a bare address ("ops@example.com"). Display names are rejected
// so recipients stay unambiguous in notification configs.
func Email(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email format")
	}
	parts := strings.Split(addr.Address, "@")
	if len(parts) != 2 || !strings.Contains(parts[1], ".") {
		return errors.New("invalid email domain")
	}
	return nil
}

// WebhookURL requires an absolute http(s) URL with a host.
func WebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("url must use http or https")
	}
	if u.Host == "" {
		return errors.New("url must include a host")
	}
	return nil
}

// PlatformName accepts lowercase identifiers such as "stripe" or "my-app".
func PlatformName(name string) error {
	if !platformName.MatchString(name) {
		return errors.New("platform must be lowercase letters, digits, '-' or '_'")
	}
	return nil
}
