// Package github talks to the GitHub REST API and OAuth endpoints on behalf of
// a visitor's access token.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

const (
	reposPerPage = 100
	maxPages     = 50
	maxErrorBody = 4 << 10
)

// Client is a minimal GitHub REST client.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Config configures a Client.
type Config struct {
	APIURL    string
	Timeout   time.Duration
	UserAgent string
}

// NewClient constructs a client. An empty APIURL selects DefaultAPIURL.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		raw = DefaultAPIURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("github api url %q must include scheme and host", raw)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	agent := strings.TrimSpace(cfg.UserAgent)
	if agent == "" {
		agent = "taskdeck"
	}
	return &Client{baseURL: base, http: httpClient, userAgent: agent}, nil
}

// ListRepositories returns every repository visible to token, following pagination.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]schema.Repository, error) {
	log := pslog.Ctx(ctx)
	next := c.endpoint("/user/repos", url.Values{
		"per_page": {fmt.Sprintf("%d", reposPerPage)},
		"page":     {"1"},
		"sort":     {"pushed"},
	})
	var all []schema.Repository
	for page := 1; next != ""; page++ {
		if page > maxPages {
			log.Warn("github repositories truncated", "pages", maxPages, "repositories", len(all))
			break
		}
		var batch []schema.Repository
		link, err := c.getJSON(ctx, next, token, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		next = nextLink(link)
		if next != "" && !c.sameOrigin(next) {
			log.Warn("github pagination link rejected", "link", next)
			return nil, fmt.Errorf("github pagination link %q is outside %s", next, c.baseURL.Host)
		}
		log.Trace("github repositories page", "page", page, "count", len(batch))
	}
	log.Debug("github repositories ok", "count", len(all))
	return all, nil
}

// CurrentUser returns the account that owns token.
func (c *Client) CurrentUser(ctx context.Context, token string) (schema.User, error) {
	var user schema.User
	if _, err := c.getJSON(ctx, c.endpoint("/user", nil), token, &user); err != nil {
		return schema.User{}, err
	}
	return user, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// sameOrigin reports whether target points at the configured API origin.
func (c *Client) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.baseURL.Scheme) && strings.EqualFold(u.Host, c.baseURL.Host)
}

func (c *Client) getJSON(ctx context.Context, target, token string, out any) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", schema.ErrGitHubUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("github request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return "", schema.ErrGitHubUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{Status: resp.StatusCode, Path: req.URL.Path, Message: apiMessage(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("github decode %s: %w", req.URL.Path, err)
	}
	return resp.Header.Get("Link"), nil
}

// APIError reports a non-2xx GitHub response.
type APIError struct {
	Status  int
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github %s: status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("github %s: status %d: %s", e.Path, e.Status, e.Message)
}

// IsRateLimited reports whether err is a GitHub rate limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusTooManyRequests ||
		(apiErr.Status == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), "rate limit"))
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// nextLink extracts the rel="next" target from a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
