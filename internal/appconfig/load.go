package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/taskdeck/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("app_mode", cfg.AppMode)
	v.SetDefault("github.client_id", cfg.GitHub.ClientID)
	v.SetDefault("github.client_secret", cfg.GitHub.ClientSecret)
	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.auth_url", cfg.GitHub.AuthURL)
	v.SetDefault("github.token_url", cfg.GitHub.TokenURL)
	v.SetDefault("github.scopes", cfg.GitHub.Scopes)
	v.SetDefault("github.timeout_seconds", cfg.GitHub.TimeoutSeconds)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.session_cookie", cfg.HTTP.SessionCookie)
	v.SetDefault("http.github_token_cookie", cfg.HTTP.GitHubTokenCookie)
	v.SetDefault("http.visitor_cookie", cfg.HTTP.VisitorCookie)
	v.SetDefault("http.import_ttl_minutes", cfg.HTTP.ImportTTLMinutes)
	v.SetDefault("http.max_upload_mb", cfg.HTTP.MaxUploadMB)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("sentry.dsn", cfg.Sentry.DSN)
	v.SetDefault("sentry.environment", cfg.Sentry.Environment)
	for key, env := range envOverrides {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envOverrides maps config keys to environment variables that take
// precedence over the config file.
var envOverrides = map[string]string{
	"app_mode":             "APP_MODE",
	"github.client_id":     "GITHUB_CLIENT_ID",
	"github.client_secret": "GITHUB_CLIENT_SECRET",
	"sentry.dsn":           "SENTRY_DSN",
}

func validateConfig(cfg Config) error {
	if _, err := schema.NormalizeAppMode(cfg.AppMode); err != nil {
		return fmt.Errorf("app_mode: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.State.Backend)) {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("unsupported state.backend %q", cfg.State.Backend)
	}
	if cfg.HTTP.MaxUploadMB < 0 {
		return fmt.Errorf("http.max_upload_mb must not be negative")
	}
	if cfg.HTTP.ImportTTLMinutes < 0 {
		return fmt.Errorf("http.import_ttl_minutes must not be negative")
	}
	if _, err := schema.NormalizeHomeConfig(cfg.HomeConfig()); err != nil {
		return err
	}
	return validateHTTPConfig(cfg.HTTP)
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.State.Path = expandEnv(cfg.State.Path)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
	cfg.GitHub.ClientSecret = expandEnv(cfg.GitHub.ClientSecret)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
