package httpapi

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/schema"
)

type fakeLister struct {
	calls   atomic.Int32
	release chan struct{}
	repos   []schema.Repository
	err     error
}

func (f *fakeLister) ListRepositories(ctx context.Context, _ string) ([]schema.Repository, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.repos, nil
}

type fakeUsers struct {
	user schema.User
	err  error
}

func (f fakeUsers) CurrentUser(context.Context, string) (schema.User, error) {
	return f.user, f.err
}

type fakeOAuth struct {
	url string
}

func (f fakeOAuth) AuthorizeURL(clientID string, _ *url.URL) (string, error) {
	return f.url + "?client_id=" + clientID, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	codes   []string
	origins []string
	token   string
	err     error
}

func (f *fakeTokens) Exchange(_ context.Context, _ string, code string, requestURL *url.URL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	f.origins = append(f.origins, requestURL.Scheme+"://"+requestURL.Host)
	return f.token, f.err
}

type memState struct {
	mu       sync.Mutex
	writes   int
	queries  map[schema.VisitorID]string
	repos    map[schema.VisitorID]string
	writeErr error
	pingErr  error
}

func (m *memState) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
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

func (m *memState) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type failureLog struct {
	mu  sync.Mutex
	ops []string
}

func (f *failureLog) ReportFailure(_ context.Context, op string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *failureLog) reported() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

type testEnv struct {
	server   *Server
	lister   *fakeLister
	state    *memState
	imports  *core.ImportRegistry
	tokens   *fakeTokens
	failures *failureLog
}

func newTestEnv(cfg Config, lister *fakeLister) (*testEnv, error) {
	if lister == nil {
		lister = &fakeLister{}
	}
	env := &testEnv{
		lister:   lister,
		state:    newMemState(),
		imports:  core.NewImportRegistry(core.DefaultImportTTL),
		tokens:   &fakeTokens{token: "gho_fresh"},
		failures: &failureLog{},
	}
	server, err := NewServer(cfg, Deps{
		HomeDeps: core.HomeDeps{
			Repositories: env.lister,
			Users:        fakeUsers{user: schema.User{Login: "octocat"}},
			OAuth:        fakeOAuth{url: "https://github.com/login/oauth/authorize"},
			State:        env.state,
			Imports:      env.imports,
			Failures:     env.failures,
		},
		Tokens: env.tokens,
	})
	if err != nil {
		return nil, err
	}
	env.server = server
	return env, nil
}
