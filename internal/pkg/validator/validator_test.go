package validator

import "testing"

func TestEmail(t *testing.T) {
	valid := []string{"ops@example.com", "a.b+c@sub.example.org"}
	invalid := []string{"", "ops", "ops@localhost", "Ops <ops@example.com>", "ops@@example.com"}

	for _, e := range valid {
		if err := Email(e); err != nil {
			t.Errorf("Email(%q) unexpected error: %v", e, err)
		}
	}
	for _, e := range invalid {
		if err := Email(e); err == nil {
			t.Errorf("Email(%q) expected error", e)
		}
	}
}

func TestWebhookURL(t *testing.T) {
	if err := WebhookURL("https://hooks.slack.com/services/T/B/X"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, u := range []string{"", "hooks.slack.com/x", "ftp://example.com", "https://"} {
		if err := WebhookURL(u); err == nil {
			t.Errorf("WebhookURL(%q) expected error", u)
		}
	}
}

func TestPlatformName(t *testing.T) {
	for _, p := range []string{"stripe", "github", "my-app_2"} {
		if err := PlatformName(p); err != nil {
			t.Errorf("PlatformName(%q) unexpected error: %v", p, err)
		}
	}
	for _, p := range []string{"", "Stripe", "-x", "a b", "../etc"} {
		if err := PlatformName(p); err == nil {
			t.Errorf("PlatformName(%q) expected error", p)
		}
	}
}
