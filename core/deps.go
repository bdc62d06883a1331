package core

import (
	"context"
	"net/url"

	"pkt.systems/taskdeck/schema"
)

// Credentials exposes the tokens a visitor carries in persistent browser storage.
type Credentials interface {
	SessionToken() string
	GitHubToken() string
}

// RepositoryLister lists every repository visible to an access token.
type RepositoryLister interface {
	ListRepositories(ctx context.Context, token string) ([]schema.Repository, error)
}

// UserResolver resolves the account behind an access token.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (schema.User, error)
}

// AuthURLBuilder derives the OAuth authorization URL for a request.
type AuthURLBuilder interface {
	AuthorizeURL(clientID string, requestURL *url.URL) (string, error)
}

// StateStore holds per-visitor state handed from the home route to the app.
type StateStore interface {
	SetInitialQuery(ctx context.Context, visitor schema.VisitorID, query string) error
	InitialQuery(ctx context.Context, visitor schema.VisitorID) (string, error)
	SetSelectedRepository(ctx context.Context, visitor schema.VisitorID, fullName string) error
	SelectedRepository(ctx context.Context, visitor schema.VisitorID) (string, error)
	Clear(ctx context.Context, visitor schema.VisitorID) error
	Close() error
}

// FailureReporter receives failures that cannot be returned to a caller,
// such as a rejected deferred value discovered while streaming a page.
type FailureReporter interface {
	ReportFailure(ctx context.Context, op string, err error)
}

// HomeDeps captures the collaborators of the home route.
type HomeDeps struct {
	Repositories RepositoryLister
	Users        UserResolver
	OAuth        AuthURLBuilder
	State        StateStore
	Imports      *ImportRegistry
	Failures     FailureReporter
}
