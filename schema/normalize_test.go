package schema

import (
	"errors"
	"testing"
)

func TestValidateVisitorID(t *testing.T) {
	cases := []struct {
		name    string
		visitor VisitorID
		valid   bool
	}{
		{"uuid", "3f1c6a0e-8f7e-4c51-9a52-9b3c3c1e0d11", true},
		{"short", "abc", true},
		{"empty", "", false},
		{"uppercase", "ABC", false},
		{"slash", "a/b", false},
		{"dots", "../x", false},
		{"too-long", VisitorID(string(make([]byte, 65))), false},
	}
	for _, tc := range cases {
		err := ValidateVisitorID(tc.visitor)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeAppMode(t *testing.T) {
	cases := []struct {
		in   string
		want AppMode
	}{
		{"", AppModeOSS},
		{"oss", AppModeOSS},
		{" SaaS ", AppModeSaaS},
	}
	for _, tc := range cases {
		got, err := NormalizeAppMode(tc.in)
		if err != nil {
			t.Fatalf("NormalizeAppMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeAppMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := NormalizeAppMode("cloud"); !errors.Is(err, ErrUnsupportedAppMode) {
		t.Fatalf("expected ErrUnsupportedAppMode, got %v", err)
	}
}

func TestNormalizeHomeConfigDefaults(t *testing.T) {
	cfg, err := NormalizeHomeConfig(HomeConfig{AppMode: "saas", GitHubClientID: " abc "})
	if err != nil {
		t.Fatalf("NormalizeHomeConfig: %v", err)
	}
	if cfg.SessionCookie != DefaultSessionCookie || cfg.GitHubTokenCookie != DefaultGitHubTokenCookie {
		t.Fatalf("unexpected cookie defaults: %+v", cfg)
	}
	if cfg.AppPath != "/app" {
		t.Fatalf("unexpected app path: %q", cfg.AppPath)
	}
	if !cfg.OAuthEnabled() {
		t.Fatalf("expected oauth enabled for saas with client id")
	}
	cfg.AppMode = AppModeOSS
	if cfg.OAuthEnabled() {
		t.Fatalf("expected oauth disabled outside saas")
	}
}

func TestNormalizeHomeConfigRejectsCookieClash(t *testing.T) {
	if _, err := NormalizeHomeConfig(HomeConfig{SessionCookie: "x", GitHubTokenCookie: "x"}); err == nil {
		t.Fatalf("expected cookie clash error")
	}
}
