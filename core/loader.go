package core

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

// LoadRequest is the input of the home route loader.
type LoadRequest struct {
	Credentials Credentials
	RequestURL  *url.URL
}

// LoadResult is what the home view renders from. When Redirect is set the
// other fields are nil and nothing was started.
type LoadResult struct {
	Redirect     string
	Repositories *Deferred[[]schema.Repository]
	AuthURL      *string
}

// Loader prepares the home route before it renders.
type Loader struct {
	cfg   schema.HomeConfig
	repos RepositoryLister
	oauth AuthURLBuilder
}

// NewLoader constructs a loader.
func NewLoader(cfg schema.HomeConfig, deps HomeDeps) (*Loader, error) {
	normalized, err := schema.NormalizeHomeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Repositories == nil {
		return nil, errors.New("repository lister is required")
	}
	if normalized.OAuthEnabled() && deps.OAuth == nil {
		return nil, errors.New("oauth url builder is required in saas mode")
	}
	return &Loader{cfg: normalized, repos: deps.Repositories, oauth: deps.OAuth}, nil
}

// Load redirects authenticated visitors to the app. Otherwise it starts the
// repository fetch without waiting for it and computes the authorization URL.
// ctx bounds the fetch; cancel it to abandon the result.
func (l *Loader) Load(ctx context.Context, req LoadRequest) (LoadResult, error) {
	if req.Credentials == nil {
		return LoadResult{}, schema.ErrInvalidRequest
	}
	log := pslog.Ctx(ctx)
	if strings.TrimSpace(req.Credentials.SessionToken()) != "" {
		log.Debug("home load redirect", "reason", "session token present", "to", l.cfg.AppPath)
		return LoadResult{Redirect: l.cfg.AppPath}, nil
	}

	var result LoadResult
	if token := strings.TrimSpace(req.Credentials.GitHubToken()); token != "" {
		log.Debug("home load repositories start")
		result.Repositories = Defer(ctx, func(ctx context.Context) ([]schema.Repository, error) {
			return l.repos.ListRepositories(ctx, token)
		})
	}

	if l.cfg.OAuthEnabled() {
		authURL, err := l.oauth.AuthorizeURL(l.cfg.GitHubClientID, req.RequestURL)
		if err != nil {
			log.Warn("home load auth url failed", "err", err)
		} else {
			result.AuthURL = &authURL
		}
	}
	log.Debug("home load ok", "repositories", result.Repositories != nil, "auth_url", result.AuthURL != nil)
	return result, nil
}

// RootData is the parent layout's loader result.
type RootData struct {
	User *schema.User
}

// RootLoader resolves data shared by every page, currently the signed-in GitHub user.
type RootLoader struct {
	users UserResolver
}

// NewRootLoader constructs a root loader. A nil resolver yields no user.
func NewRootLoader(users UserResolver) *RootLoader {
	return &RootLoader{users: users}
}

// Load resolves the current user when a GitHub token is present. A rejected
// token is not an error; the visitor is treated as signed out.
func (l *RootLoader) Load(ctx context.Context, creds Credentials) (RootData, error) {
	if l == nil || l.users == nil || creds == nil {
		return RootData{}, nil
	}
	token := strings.TrimSpace(creds.GitHubToken())
	if token == "" {
		return RootData{}, nil
	}
	user, err := l.users.CurrentUser(ctx, token)
	if err != nil {
		if errors.Is(err, schema.ErrGitHubUnauthorized) {
			pslog.Ctx(ctx).Info("root load github token rejected")
			return RootData{}, nil
		}
		return RootData{}, err
	}
	return RootData{User: &user}, nil
}
