package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"
)

// CallbackPath is where GitHub sends the visitor after authorization.
const CallbackPath = "/oauth/github/callback"

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"repo", "user", "workflow"}

// OAuthConfig configures the OAuth flow.
type OAuthConfig struct {
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// BaseURL overrides the request origin, e.g. behind a reverse proxy.
	BaseURL string
	// BasePath is the mount prefix of the HTTP surface.
	BasePath string
}

// OAuth builds authorization URLs and exchanges codes for tokens.
type OAuth struct {
	cfg      OAuthConfig
	endpoint oauth2.Endpoint
	client   *http.Client
}

// NewOAuth constructs the OAuth helper. httpClient is used for code exchange
// and may be nil.
func NewOAuth(cfg OAuthConfig, httpClient *http.Client) *OAuth {
	endpoint := githubendpoint.Endpoint
	if strings.TrimSpace(cfg.AuthURL) != "" {
		endpoint.AuthURL = strings.TrimSpace(cfg.AuthURL)
	}
	if strings.TrimSpace(cfg.TokenURL) != "" {
		endpoint.TokenURL = strings.TrimSpace(cfg.TokenURL)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	return &OAuth{cfg: cfg, endpoint: endpoint, client: httpClient}
}

// AuthorizeURL returns the GitHub authorization URL whose callback lives on
// the origin of requestURL. Equal inputs always yield the same URL.
func (o *OAuth) AuthorizeURL(clientID string, requestURL *url.URL) (string, error) {
	if strings.TrimSpace(clientID) == "" {
		return "", errors.New("github client id is required")
	}
	redirect, err := o.RedirectURL(requestURL)
	if err != nil {
		return "", err
	}
	cfg := o.config(clientID, redirect)
	return cfg.AuthCodeURL(""), nil
}

// Exchange trades an authorization code for an access token.
func (o *OAuth) Exchange(ctx context.Context, clientID, code string, requestURL *url.URL) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", errors.New("authorization code is required")
	}
	if strings.TrimSpace(o.cfg.ClientSecret) == "" {
		return "", errors.New("github client secret is not configured")
	}
	redirect, err := o.RedirectURL(requestURL)
	if err != nil {
		return "", err
	}
	if o.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	}
	cfg := o.config(clientID, redirect)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("github returned an empty access token")
	}
	return token.AccessToken, nil
}

// RedirectURL returns the absolute callback URL for requestURL.
func (o *OAuth) RedirectURL(requestURL *url.URL) (string, error) {
	origin, err := o.origin(requestURL)
	if err != nil {
		return "", err
	}
	return origin + normalizePrefix(o.cfg.BasePath) + CallbackPath, nil
}

func (o *OAuth) config(clientID, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: o.cfg.ClientSecret,
		Endpoint:     o.endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{strings.Join(o.cfg.Scopes, ",")},
	}
}

func (o *OAuth) origin(requestURL *url.URL) (string, error) {
	if base := strings.TrimRight(strings.TrimSpace(o.cfg.BaseURL), "/"); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", errors.New("base url must include scheme and host")
		}
		return parsed.Scheme + "://" + parsed.Host, nil
	}
	if requestURL == nil || requestURL.Host == "" {
		return "", errors.New("request url must be absolute")
	}
	scheme := requestURL.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + requestURL.Host, nil
}

func normalizePrefix(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}
