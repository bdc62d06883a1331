package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/taskdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	AppMode       string        `mapstructure:"app_mode" yaml:"app_mode"`
	GitHub        GitHubConfig  `mapstructure:"github" yaml:"github"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	State         StateConfig   `mapstructure:"state" yaml:"state"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Sentry        SentryConfig  `mapstructure:"sentry" yaml:"sentry"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// GitHubConfig configures the GitHub API and OAuth app.
type GitHubConfig struct {
	ClientID       string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret   string   `mapstructure:"client_secret" yaml:"client_secret"`
	APIURL         string   `mapstructure:"api_url" yaml:"api_url"`
	AuthURL        string   `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL       string   `mapstructure:"token_url" yaml:"token_url"`
	Scopes         []string `mapstructure:"scopes" yaml:"scopes"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string `mapstructure:"addr" yaml:"addr"`
	BaseURL           string `mapstructure:"base_url" yaml:"base_url"`
	BasePath          string `mapstructure:"base_path" yaml:"base_path"`
	SessionCookie     string `mapstructure:"session_cookie" yaml:"session_cookie"`
	GitHubTokenCookie string `mapstructure:"github_token_cookie" yaml:"github_token_cookie"`
	VisitorCookie     string `mapstructure:"visitor_cookie" yaml:"visitor_cookie"`
	ImportTTLMinutes  int    `mapstructure:"import_ttl_minutes" yaml:"import_ttl_minutes"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// StateConfig selects the visitor state backend.
type StateConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls the optional rotating log file.
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// HomeConfig projects the settings read by the home route.
func (c Config) HomeConfig() schema.HomeConfig {
	return schema.HomeConfig{
		AppMode:           schema.AppMode(c.AppMode),
		GitHubClientID:    c.GitHub.ClientID,
		SessionCookie:     c.HTTP.SessionCookie,
		GitHubTokenCookie: c.HTTP.GitHubTokenCookie,
		AppPath:           schema.DefaultAppPath,
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".taskdeck", "state"),
		AppMode:       string(schema.AppModeOSS),
		GitHub: GitHubConfig{
			APIURL:         "https://api.github.com",
			AuthURL:        "",
			TokenURL:       "",
			Scopes:         []string{"repo", "user", "workflow"},
			TimeoutSeconds: 15,
		},
		HTTP: HTTPConfig{
			Addr:              ":27490",
			BaseURL:           "",
			BasePath:          "",
			SessionCookie:     schema.DefaultSessionCookie,
			GitHubTokenCookie: schema.DefaultGitHubTokenCookie,
			VisitorCookie:     "taskdeck_visitor",
			ImportTTLMinutes:  30,
			MaxUploadMB:       64,
		},
		State: StateConfig{
			Backend: "sqlite",
			Path:    "",
		},
		Logging: LoggingConfig{
			File:       "",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskdeck", "config.yaml"), nil
}
