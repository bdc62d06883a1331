package core

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"

	"pkt.systems/taskdeck/schema"
)

type fakeCredentials struct {
	session string
	github  string
}

func (c fakeCredentials) SessionToken() string { return c.session }
func (c fakeCredentials) GitHubToken() string  { return c.github }

type fakeLister struct {
	calls  atomic.Int32
	tokens chan string
	repos  []schema.Repository
	err    error
	block  chan struct{}
}

func (f *fakeLister) ListRepositories(ctx context.Context, token string) ([]schema.Repository, error) {
	f.calls.Add(1)
	if f.tokens != nil {
		f.tokens <- token
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.repos, f.err
}

type fakeUsers struct {
	user schema.User
	err  error
}

func (f fakeUsers) CurrentUser(context.Context, string) (schema.User, error) {
	return f.user, f.err
}

type fakeOAuth struct {
	calls int
	err   error
}

func (f *fakeOAuth) AuthorizeURL(clientID string, requestURL *url.URL) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if requestURL == nil {
		return "", errors.New("request url is required")
	}
	return "https://github.com/login/oauth/authorize?client_id=" + clientID + "&origin=" + requestURL.Host, nil
}

type memState struct {
	mu       sync.Mutex
	queries  map[schema.VisitorID]string
	repos    map[schema.VisitorID]string
	writes   int
	writeErr error
}

func newMemState() *memState {
	return &memState{queries: map[schema.VisitorID]string{}, repos: map[schema.VisitorID]string{}}
}

func (m *memState) SetInitialQuery(_ context.Context, visitor schema.VisitorID, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.queries[visitor] = query
	return nil
}

func (m *memState) InitialQuery(_ context.Context, visitor schema.VisitorID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[visitor], nil
}

func (m *memState) SetSelectedRepository(_ context.Context, visitor schema.VisitorID, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.repos[visitor] = fullName
	return nil
}

func (m *memState) SelectedRepository(_ context.Context, visitor schema.VisitorID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos[visitor], nil
}

func (m *memState) Clear(_ context.Context, visitor schema.VisitorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queries, visitor)
	delete(m.repos, visitor)
	return nil
}

func (m *memState) Close() error { return nil }
