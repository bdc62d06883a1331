package schema

import (
	"fmt"
	"strings"
)

// HomeConfig holds the settings read by the home route.
type HomeConfig struct {
	AppMode           AppMode
	GitHubClientID    string
	SessionCookie     string
	GitHubTokenCookie string
	AppPath           string
}

// Defaults for HomeConfig.
const (
	DefaultSessionCookie     = "token"
	DefaultGitHubTokenCookie = "ghToken"
	DefaultAppPath           = "/app"
)

// NormalizeHomeConfig applies defaults and validates the config.
func NormalizeHomeConfig(cfg HomeConfig) (HomeConfig, error) {
	mode, err := NormalizeAppMode(string(cfg.AppMode))
	if err != nil {
		return HomeConfig{}, err
	}
	cfg.AppMode = mode
	cfg.GitHubClientID = strings.TrimSpace(cfg.GitHubClientID)
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		cfg.SessionCookie = DefaultSessionCookie
	}
	if strings.TrimSpace(cfg.GitHubTokenCookie) == "" {
		cfg.GitHubTokenCookie = DefaultGitHubTokenCookie
	}
	if cfg.SessionCookie == cfg.GitHubTokenCookie {
		return HomeConfig{}, fmt.Errorf("session cookie and github token cookie must differ (%q)", cfg.SessionCookie)
	}
	if strings.TrimSpace(cfg.AppPath) == "" {
		cfg.AppPath = DefaultAppPath
	}
	if !strings.HasPrefix(cfg.AppPath, "/") {
		cfg.AppPath = "/" + cfg.AppPath
	}
	return cfg, nil
}

// OAuthEnabled reports whether an authorization URL should be offered.
func (c HomeConfig) OAuthEnabled() bool {
	return c.AppMode == AppModeSaaS && c.GitHubClientID != ""
}
